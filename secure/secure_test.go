package secure

import (
	"bytes"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/4cecoder/snakeserver/framing"
)

var serverKeys, clientKeys *KeyPair

func TestMain(m *testing.M) {
	var err error
	if serverKeys, err = GenerateKeyPair(DefaultKeyBits); err != nil {
		panic(err)
	}
	if clientKeys, err = GenerateKeyPair(DefaultKeyBits); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type handshakeResult struct {
	ch  *Channel
	err error
}

func handshakePair(t *testing.T) (server, client *Channel, serverConn, clientConn net.Conn) {
	t.Helper()
	serverConn, clientConn = net.Pipe()
	t.Cleanup(func() {
		serverConn.Close()
		clientConn.Close()
	})

	done := make(chan handshakeResult, 1)
	go func() {
		ch, err := ServerHandshake(serverConn, serverKeys)
		done <- handshakeResult{ch, err}
	}()

	client, err := ClientHandshake(clientConn, clientKeys)
	if err != nil {
		t.Fatalf("client handshake: %v", err)
	}
	res := <-done
	if res.err != nil {
		t.Fatalf("server handshake: %v", res.err)
	}
	return res.ch, client, serverConn, clientConn
}

func TestHandshakeAgreesOnSessionKey(t *testing.T) {
	server, client, _, _ := handshakePair(t)

	if *server.key != *client.key {
		t.Fatalf("expected both sides to hold the same session key")
	}

	go func() {
		_ = client.Send([]byte(`{"command":"CONTROL:get"}`))
	}()
	got, err := server.Receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if string(got) != `{"command":"CONTROL:get"}` {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestReceiveRejectsTamperedCiphertext(t *testing.T) {
	server, client, _, clientConn := handshakePair(t)

	tok, err := client.Seal([]byte("CONTROL:up"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	tok[len(tok)/2] ^= 0x01

	go func() {
		_ = framing.Write(clientConn, tok)
	}()
	_, err = server.Receive()
	if !errors.Is(err, ErrDecryption) {
		t.Fatalf("expected ErrDecryption, got %v", err)
	}
	if errors.Is(err, framing.ErrConnectionClosed) {
		t.Fatalf("decryption failure must not look like a closed connection")
	}
}

func TestReceiveReportsClosedPeer(t *testing.T) {
	server, _, _, clientConn := handshakePair(t)
	clientConn.Close()

	_, err := server.Receive()
	if !errors.Is(err, framing.ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestServerHandshakeRejectsGarbageKey(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	go func() {
		_, _ = readKeyBlock(clientConn)
		_ = writeKeyBlock(clientConn, []byte("not a pem block"))
	}()

	_, err := ServerHandshake(serverConn, serverKeys)
	if !errors.Is(err, ErrHandshake) {
		t.Fatalf("expected ErrHandshake, got %v", err)
	}
}

func TestServerHandshakeReportsEarlyClose(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()

	go func() {
		_, _ = readKeyBlock(clientConn)
		clientConn.Close()
	}()

	_, err := ServerHandshake(serverConn, serverKeys)
	if !errors.Is(err, ErrHandshake) || !errors.Is(err, framing.ErrConnectionClosed) {
		t.Fatalf("expected handshake failure caused by closed peer, got %v", err)
	}
}

func TestSessionKeysAreDistinct(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		key, err := NewSessionKey()
		if err != nil {
			t.Fatalf("trial %d: %v", i, err)
		}
		k := string(key[:])
		if _, dup := seen[k]; dup {
			t.Fatalf("trial %d produced a repeated session key", i)
		}
		seen[k] = struct{}{}
	}
}

func TestIndependentHandshakesDeriveDifferentKeys(t *testing.T) {
	_, first, _, _ := handshakePair(t)
	_, second, _, _ := handshakePair(t)
	if *first.key == *second.key {
		t.Fatalf("expected independent sessions to use different keys")
	}

	tok, err := first.Seal([]byte("hello"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := second.Open(tok); !errors.Is(err, ErrDecryption) {
		t.Fatalf("expected a foreign session key to fail, got %v", err)
	}
}

func TestFingerprintIsStable(t *testing.T) {
	if serverKeys.Fingerprint() != serverKeys.Fingerprint() {
		t.Fatalf("fingerprint changed between calls")
	}
	if serverKeys.Fingerprint() == clientKeys.Fingerprint() {
		t.Fatalf("expected different keys to have different fingerprints")
	}
	if !bytes.HasPrefix(serverKeys.PublicPEM(), []byte("-----BEGIN RSA PUBLIC KEY-----")) {
		t.Fatalf("unexpected PEM header %q", serverKeys.PublicPEM()[:32])
	}
}

func TestOpenAcceptsTokensFromSkewedClocks(t *testing.T) {
	key, err := NewSessionKey()
	if err != nil {
		t.Fatalf("session key: %v", err)
	}
	ch := NewChannel(nil, key)

	for _, skew := range []time.Duration{0, -2 * time.Minute, 2 * time.Minute, -24 * time.Hour} {
		tok, err := fernet.EncryptAndSignAtTime([]byte("CONTROL:get"), key, time.Now().Add(skew))
		if err != nil {
			t.Fatalf("skew %s: seal: %v", skew, err)
		}
		got, err := ch.Open(tok)
		if err != nil {
			t.Fatalf("skew %s: expected a valid token to open, got %v", skew, err)
		}
		if string(got) != "CONTROL:get" {
			t.Fatalf("skew %s: unexpected payload %q", skew, got)
		}
	}
}
