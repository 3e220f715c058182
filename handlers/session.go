// Package handlers runs player sessions over the encrypted protocol and
// exposes the HTTP side of the server.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"

	"github.com/4cecoder/snakeserver/framing"
	"github.com/4cecoder/snakeserver/game"
	"github.com/4cecoder/snakeserver/models"
	"github.com/4cecoder/snakeserver/secure"
)

// Conn is what a session needs from its transport. net.Conn and
// transport.WebSocketConn both satisfy it.
type Conn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
}

// Session is the server side of one connected client.
type Session struct {
	PlayerID string
	Remote   string

	conn    Conn
	channel *secure.Channel
	server  *Server
}

func newSession(s *Server, conn Conn, remote string) *Session {
	return &Session{
		Remote: remote,
		conn:   conn,
		server: s,
	}
}

func (sess *Session) handshake() error {
	if t := sess.server.cfg.HandshakeTimeout; t > 0 {
		_ = sess.conn.SetReadDeadline(time.Now().Add(t))
	}
	ch, err := secure.ServerHandshake(sess.conn, sess.server.keys)
	if err != nil {
		return err
	}
	sess.channel = ch
	return nil
}

// run serves commands until the client quits or the connection fails.
func (sess *Session) run() {
	for {
		if t := sess.server.cfg.IdleTimeout; t > 0 {
			_ = sess.conn.SetReadDeadline(time.Now().Add(t))
		} else {
			_ = sess.conn.SetReadDeadline(time.Time{})
		}

		payload, err := sess.channel.Receive()
		if err != nil {
			switch {
			case errors.Is(err, framing.ErrConnectionClosed):
				log.Printf("[SESSION] player %s (%s) disconnected", sess.PlayerID, sess.Remote)
			case errors.Is(err, secure.ErrDecryption):
				log.Printf("[SESSION] player %s (%s) sent an undecryptable message, closing: %v", sess.PlayerID, sess.Remote, err)
			default:
				log.Printf("[SESSION] player %s (%s) read failed: %v", sess.PlayerID, sess.Remote, err)
			}
			return
		}

		cmd, err := models.ParseCommand(payload)
		if err != nil {
			log.Printf("[SESSION] player %s (%s): %v", sess.PlayerID, sess.Remote, err)
			cmd = models.Get()
		}
		if cmd.Kind == models.CmdQuit {
			log.Printf("[SESSION] player %s (%s) quit", sess.PlayerID, sess.Remote)
			return
		}
		sess.apply(cmd)

		if err := sess.respond(); err != nil {
			log.Printf("[SESSION] player %s (%s) write failed: %v", sess.PlayerID, sess.Remote, err)
			return
		}
	}
}

func (sess *Session) apply(cmd models.Command) {
	switch cmd.Kind {
	case models.CmdMove:
		// Moves while dead are dropped; the player has to reset first.
		if err := sess.server.loop.Submit(sess.PlayerID, cmd.Direction); err != nil && !errors.Is(err, game.ErrInvalidTransition) {
			log.Printf("[SESSION] player %s move: %v", sess.PlayerID, err)
		}
	case models.CmdReset:
		if err := sess.server.loop.Reset(sess.PlayerID); err != nil {
			log.Printf("[SESSION] player %s reset: %v", sess.PlayerID, err)
		}
	case models.CmdChat:
		if _, err := sess.server.chat.Post(sess.Remote, cmd.ChatCode); err != nil {
			log.Printf("[SESSION] player %s chat: %v", sess.PlayerID, err)
		}
	}
}

func (sess *Session) respond() error {
	resp := BuildResponse(sess.server.loop.Snapshot(), sess.server.chat.Current())
	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return sess.channel.Send(body)
}
