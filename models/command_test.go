package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		payload string
		want    Command
	}{
		{`{"command":"CONTROL:get"}`, Get()},
		{`{"command":"CONTROL:up"}`, Move(DirUp)},
		{`{"command":"CONTROL:down"}`, Move(DirDown)},
		{`{"command":"CONTROL:left"}`, Move(DirLeft)},
		{`{"command":"CONTROL:right"}`, Move(DirRight)},
		{`{"command":"CONTROL:reset"}`, Reset()},
		{`{"command":"CONTROL:quit"}`, Quit()},
		{`{"command":"CHAT:Z"}`, Chat("Z")},
	}

	for _, tt := range tests {
		got, err := ParseCommand([]byte(tt.payload))
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tt.payload, err)
		}
		if got != tt.want {
			t.Fatalf("%s: expected %#v, got %#v", tt.payload, tt.want, got)
		}
	}
}

func TestParseCommandRejectsMalformed(t *testing.T) {
	payloads := []string{
		`not json`,
		`{"command":"get"}`,
		`{"command":"CONTROL:jump"}`,
		`{"command":"CHAT:Q"}`,
		`{"command":"ADMIN:get"}`,
		`{}`,
	}

	for _, payload := range payloads {
		_, err := ParseCommand([]byte(payload))
		if !errors.Is(err, ErrMalformedCommand) {
			t.Fatalf("%s: expected ErrMalformedCommand, got %v", payload, err)
		}
	}
}

func TestCommandMarshalsToWireEnvelope(t *testing.T) {
	data, err := json.Marshal(Move(DirLeft))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"command":"CONTROL:left"}` {
		t.Fatalf("unexpected envelope %s", data)
	}

	back, err := ParseCommand(data)
	if err != nil || back != Move(DirLeft) {
		t.Fatalf("expected CONTROL:left back, got %#v (%v)", back, err)
	}
}

func TestResponseWireShape(t *testing.T) {
	chat := "hi"
	resp := Response{
		Snakes: []SnakeView{{Positions: []Cell{{X: 1, Y: 2}, {X: 0, Y: 2}}, Color: Color{255, 0, 0}}},
		Snacks: []Cell{{X: 5, Y: 6}},
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	expected := `{"snakes":[{"positions":[[1,2],[0,2]],"color":[255,0,0]}],"snacks":[[5,6]],"chat_message":null}`
	if string(data) != expected {
		t.Fatalf("expected %s, got %s", expected, data)
	}

	resp.ChatMessage = &chat
	data, _ = json.Marshal(resp)
	var decoded Response
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.ChatMessage == nil || *decoded.ChatMessage != "hi" {
		t.Fatalf("expected chat message to survive, got %v", decoded.ChatMessage)
	}
	if decoded.Snakes[0].Positions[0] != (Cell{X: 1, Y: 2}) {
		t.Fatalf("unexpected head %#v", decoded.Snakes[0].Positions[0])
	}
}

func TestDirectionBetween(t *testing.T) {
	if got := DirectionBetween(Cell{X: 3, Y: 3}, Cell{X: 3, Y: 2}); got != DirUp {
		t.Fatalf("expected up, got %s", got)
	}
	if got := DirectionBetween(Cell{X: 3, Y: 3}, Cell{X: 3, Y: 3}.Step(DirLeft)); got != DirLeft {
		t.Fatalf("expected left, got %s", got)
	}
	if got := DirectionBetween(Cell{X: 3, Y: 3}, Cell{X: 5, Y: 3}); got != DirNone {
		t.Fatalf("expected none for a non-adjacent cell, got %s", got)
	}
}
