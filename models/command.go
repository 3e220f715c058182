package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedCommand covers unparseable payloads and unknown verbs.
var ErrMalformedCommand = errors.New("malformed command")

const (
	NamespaceControl = "CONTROL"
	NamespaceChat    = "CHAT"
)

type CommandKind int

const (
	CmdGet CommandKind = iota
	CmdMove
	CmdReset
	CmdQuit
	CmdChat
)

// Command is a decoded client request. Direction is set for CmdMove, ChatCode for CmdChat.
type Command struct {
	Kind      CommandKind
	Direction Direction
	ChatCode  string
}

// ChatMessages maps the predefined chat codes onto the text that gets broadcast.
var ChatMessages = map[string]string{
	"Z": "Congratulations!",
	"X": "It works!",
	"C": "Ready?",
}

type commandEnvelope struct {
	Command string `json:"command"`
}

func Get() Command             { return Command{Kind: CmdGet} }
func Move(d Direction) Command { return Command{Kind: CmdMove, Direction: d} }
func Reset() Command           { return Command{Kind: CmdReset} }
func Quit() Command            { return Command{Kind: CmdQuit} }
func Chat(code string) Command { return Command{Kind: CmdChat, ChatCode: code} }

func (c Command) String() string {
	switch c.Kind {
	case CmdMove:
		return NamespaceControl + ":" + c.Direction.String()
	case CmdReset:
		return NamespaceControl + ":reset"
	case CmdQuit:
		return NamespaceControl + ":quit"
	case CmdChat:
		return NamespaceChat + ":" + c.ChatCode
	default:
		return NamespaceControl + ":get"
	}
}

func (c Command) MarshalJSON() ([]byte, error) {
	return json.Marshal(commandEnvelope{Command: c.String()})
}

// ParseCommand decodes a {"command": "<NAMESPACE>:<verb>"} payload.
func ParseCommand(payload []byte) (Command, error) {
	var env commandEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	return ParseCommandString(env.Command)
}

func ParseCommandString(raw string) (Command, error) {
	namespace, verb, ok := strings.Cut(raw, ":")
	if !ok {
		return Command{}, fmt.Errorf("%w: missing namespace in %q", ErrMalformedCommand, raw)
	}

	switch namespace {
	case NamespaceControl:
		switch verb {
		case "get":
			return Get(), nil
		case "reset":
			return Reset(), nil
		case "quit":
			return Quit(), nil
		}
		if d, ok := ParseDirection(verb); ok {
			return Move(d), nil
		}
	case NamespaceChat:
		if _, ok := ChatMessages[verb]; ok {
			return Chat(verb), nil
		}
	}
	return Command{}, fmt.Errorf("%w: unknown verb %q", ErrMalformedCommand, raw)
}
