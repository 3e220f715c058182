package client

import (
	"encoding/json"
	"net"
	"os"
	"testing"

	"github.com/4cecoder/snakeserver/models"
	"github.com/4cecoder/snakeserver/secure"
)

var serverKeys, clientKeys *secure.KeyPair

func TestMain(m *testing.M) {
	var err error
	if serverKeys, err = secure.GenerateKeyPair(secure.DefaultKeyBits); err != nil {
		panic(err)
	}
	if clientKeys, err = secure.GenerateKeyPair(secure.DefaultKeyBits); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// echoServer answers every command except quit with a response whose chat
// line is the command string it received.
func echoServer(t *testing.T, conn net.Conn, received chan<- string) {
	ch, err := secure.ServerHandshake(conn, serverKeys)
	if err != nil {
		t.Errorf("server handshake: %v", err)
		return
	}
	for {
		payload, err := ch.Receive()
		if err != nil {
			close(received)
			return
		}
		cmd, err := models.ParseCommand(payload)
		if err != nil {
			t.Errorf("parse: %v", err)
			return
		}
		received <- cmd.String()
		if cmd.Kind == models.CmdQuit {
			continue
		}
		text := cmd.String()
		body, _ := json.Marshal(models.Response{
			Snakes:      []models.SnakeView{},
			Snacks:      []models.Cell{{X: 1, Y: 2}},
			ChatMessage: &text,
		})
		if err := ch.Send(body); err != nil {
			return
		}
	}
}

func TestClientRoundTrip(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	received := make(chan string, 8)
	go echoServer(t, serverConn, received)

	c, err := New(clientConn, Config{Keys: clientKeys})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	resp, err := c.Send(models.Move(models.DirLeft))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := <-received; got != "CONTROL:left" {
		t.Fatalf("expected CONTROL:left on the wire, got %q", got)
	}
	if resp.ChatMessage == nil || *resp.ChatMessage != "CONTROL:left" || len(resp.Snacks) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}

	resp, err = c.Send(models.Quit())
	if err != nil {
		t.Fatalf("quit: %v", err)
	}
	if resp.ChatMessage != nil || resp.Snakes != nil {
		t.Fatalf("expected empty response for quit, got %+v", resp)
	}
	if got := <-received; got != "CONTROL:quit" {
		t.Fatalf("expected CONTROL:quit on the wire, got %q", got)
	}
}

func TestClientGeneratesKeysWhenNoneGiven(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	received := make(chan string, 1)
	go echoServer(t, serverConn, received)

	c, err := New(clientConn, Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	if _, err := c.Send(models.Get()); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestDialRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if _, err := Dial(addr, Config{Keys: clientKeys}); err == nil {
		t.Fatalf("expected dial to a closed port to fail")
	}
}
