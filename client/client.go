// Package client is a reference client for the snake server. It performs the
// initiator side of the handshake and then exchanges one response per command.
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/4cecoder/snakeserver/models"
	"github.com/4cecoder/snakeserver/secure"
	"github.com/4cecoder/snakeserver/transport"
	"github.com/gorilla/websocket"
)

type Config struct {
	// Keys is the client key pair. A fresh pair of KeyBits is generated per
	// connection when nil.
	Keys        *secure.KeyPair
	KeyBits     int
	DialTimeout time.Duration
}

type Client struct {
	conn    io.ReadWriteCloser
	channel *secure.Channel
	mu      sync.Mutex
}

// Dial connects over TCP and completes the handshake.
func Dial(addr string, cfg Config) (*Client, error) {
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c, err := New(conn, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// DialWebSocket connects to the server's websocket endpoint, e.g.
// ws://localhost:8080/ws, and completes the same handshake over it.
func DialWebSocket(url string, cfg Config) (*Client, error) {
	dialer := *websocket.DefaultDialer
	if cfg.DialTimeout > 0 {
		dialer.HandshakeTimeout = cfg.DialTimeout
	}
	ws, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn := transport.NewWebSocketConn(ws)
	c, err := New(conn, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// New runs the handshake over an established connection.
func New(conn io.ReadWriteCloser, cfg Config) (*Client, error) {
	keys := cfg.Keys
	if keys == nil {
		bits := cfg.KeyBits
		if bits == 0 {
			bits = secure.DefaultKeyBits
		}
		var err error
		if keys, err = secure.GenerateKeyPair(bits); err != nil {
			return nil, err
		}
	}

	ch, err := secure.ClientHandshake(conn, keys)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, channel: ch}, nil
}

// Send issues cmd and waits for the server's snapshot. Quit gets no reply,
// so it returns an empty Response once the command is written.
func (c *Client) Send(cmd models.Command) (models.Response, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return models.Response{}, err
	}
	if cmd.Kind == models.CmdQuit {
		c.mu.Lock()
		defer c.mu.Unlock()
		return models.Response{}, c.channel.Send(payload)
	}
	return c.roundTrip(payload)
}

// SendRaw sends an arbitrary payload through the encrypted channel, which is
// handy for poking the server with malformed commands.
func (c *Client) SendRaw(payload []byte) (models.Response, error) {
	return c.roundTrip(payload)
}

func (c *Client) roundTrip(payload []byte) (models.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.channel.Send(payload); err != nil {
		return models.Response{}, err
	}
	body, err := c.channel.Receive()
	if err != nil {
		return models.Response{}, err
	}
	var resp models.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
