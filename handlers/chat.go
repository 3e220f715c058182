package handlers

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/4cecoder/snakeserver/models"
)

const DefaultChatTTL = 5 * time.Second

// ChatRelay holds the single broadcast chat line. A message is visible to
// every response built within ttl of being posted, then disappears.
type ChatRelay struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	text     string
	postedAt time.Time
	posted   int64
}

func NewChatRelay(ttl time.Duration) *ChatRelay {
	if ttl <= 0 {
		ttl = DefaultChatTTL
	}
	return &ChatRelay{ttl: ttl, now: time.Now}
}

// Post replaces the current broadcast with the canned text for code.
func (c *ChatRelay) Post(from, code string) (string, error) {
	canned, ok := models.ChatMessages[code]
	if !ok {
		return "", fmt.Errorf("%w: unknown chat code %q", models.ErrMalformedCommand, code)
	}
	text := fmt.Sprintf("Chat from %s: %s", from, canned)

	c.mu.Lock()
	c.text = text
	c.postedAt = c.now()
	c.posted++
	c.mu.Unlock()

	log.Printf("[CHAT] %s", text)
	return text, nil
}

// Current returns the broadcast line, or nil once it has expired.
func (c *ChatRelay) Current() *string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.text == "" || c.now().Sub(c.postedAt) >= c.ttl {
		return nil
	}
	text := c.text
	return &text
}

func (c *ChatRelay) Posted() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.posted
}
