package handlers

import (
	"errors"
	"testing"
	"time"

	"github.com/4cecoder/snakeserver/models"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestChatRelayExpiresAfterWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	relay := NewChatRelay(5 * time.Second)
	relay.now = clock.now

	if relay.Current() != nil {
		t.Fatalf("expected no chat before anything is posted")
	}

	text, err := relay.Post("10.0.0.1:4000", "Z")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if text != "Chat from 10.0.0.1:4000: Congratulations!" {
		t.Fatalf("unexpected chat text %q", text)
	}

	clock.advance(4999 * time.Millisecond)
	if got := relay.Current(); got == nil || *got != text {
		t.Fatalf("expected chat still visible, got %v", got)
	}

	clock.advance(time.Millisecond)
	if got := relay.Current(); got != nil {
		t.Fatalf("expected chat expired at the window edge, got %q", *got)
	}

	clock.advance(time.Second)
	second, _ := relay.Post("10.0.0.2:4000", "X")
	if got := relay.Current(); got == nil || *got != second {
		t.Fatalf("expected second message visible, got %v", got)
	}
	if relay.Posted() != 2 {
		t.Fatalf("expected 2 posted messages, got %d", relay.Posted())
	}
}

func TestChatRelayRejectsUnknownCode(t *testing.T) {
	relay := NewChatRelay(0)
	if _, err := relay.Post("x", "Q"); !errors.Is(err, models.ErrMalformedCommand) {
		t.Fatalf("expected ErrMalformedCommand, got %v", err)
	}
	if relay.Current() != nil || relay.Posted() != 0 {
		t.Fatalf("rejected chat must not be broadcast")
	}
}
