package handlers

import (
	"github.com/4cecoder/snakeserver/game"
	"github.com/4cecoder/snakeserver/models"
)

// BuildResponse renders a published snapshot plus the live chat line into
// the wire response. It only reads snap, which is never mutated.
func BuildResponse(snap *game.Snapshot, chat *string) models.Response {
	resp := models.Response{
		Snakes:      make([]models.SnakeView, 0, len(snap.Snakes)),
		Snacks:      make([]models.Cell, 0, len(snap.Snacks)),
		ChatMessage: chat,
	}
	for _, s := range snap.Snakes {
		resp.Snakes = append(resp.Snakes, models.SnakeView{
			Positions: append([]models.Cell(nil), s.Body...),
			Color:     s.Color,
		})
	}
	resp.Snacks = append(resp.Snacks, snap.Snacks...)
	return resp
}
