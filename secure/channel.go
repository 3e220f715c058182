package secure

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/4cecoder/snakeserver/framing"
)

// ErrDecryption is returned when a frame fails authentication or decryption.
var ErrDecryption = errors.New("decryption failure")

// TokenTTL is passed to fernet when opening tokens. A negative TTL turns off
// the timestamp checks, so peer clock skew never looks like tampering.
const TokenTTL time.Duration = -1

// Channel seals payloads with the session key and frames them onto the stream.
type Channel struct {
	rw  io.ReadWriter
	key *fernet.Key

	writeMu sync.Mutex
}

func NewChannel(rw io.ReadWriter, key *fernet.Key) *Channel {
	return &Channel{rw: rw, key: key}
}

func (c *Channel) Seal(plaintext []byte) ([]byte, error) {
	tok, err := fernet.EncryptAndSign(plaintext, c.key)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	return tok, nil
}

func (c *Channel) Open(token []byte) ([]byte, error) {
	msg := fernet.VerifyAndDecrypt(token, TokenTTL, []*fernet.Key{c.key})
	if msg == nil {
		return nil, fmt.Errorf("%w: %d byte token rejected", ErrDecryption, len(token))
	}
	return msg, nil
}

// Send seals payload and writes it as one frame.
func (c *Channel) Send(payload []byte) error {
	tok, err := c.Seal(payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return framing.Write(c.rw, tok)
}

// Receive reads one frame and opens it. Framing errors pass through unchanged
// so callers can tell a closed peer from a forged message.
func (c *Channel) Receive() ([]byte, error) {
	tok, err := framing.Decode(c.rw)
	if err != nil {
		return nil, err
	}
	return c.Open(tok)
}
