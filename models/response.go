package models

// SnakeView is one snake as the client renders it.
type SnakeView struct {
	Positions []Cell `json:"positions"`
	Color     Color  `json:"color"`
}

// Response is the payload returned for every client command.
type Response struct {
	Snakes      []SnakeView `json:"snakes"`
	Snacks      []Cell      `json:"snacks"`
	ChatMessage *string     `json:"chat_message"`
}
