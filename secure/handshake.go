package secure

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/fernet/fernet-go"

	"github.com/4cecoder/snakeserver/framing"
)

// ErrHandshake is returned for any failure before the session key is agreed.
var ErrHandshake = errors.New("handshake failed")

const maxKeyBlock = 4096

var oaepLabel = []byte("snake-session-key")

// ServerHandshake runs the responder side:
//
//	server -> client  server public key (uint16 length + PEM)
//	client -> server  client public key (uint16 length + PEM)
//	client -> server  session key, RSA-OAEP encrypted to the server key (fixed size)
func ServerHandshake(rw io.ReadWriter, kp *KeyPair) (*Channel, error) {
	if err := writeKeyBlock(rw, kp.PublicPEM()); err != nil {
		return nil, handshakeErr("send server key", err)
	}

	clientPEM, err := readKeyBlock(rw)
	if err != nil {
		return nil, handshakeErr("read client key", err)
	}
	if _, err := parsePublicKey(clientPEM); err != nil {
		return nil, handshakeErr("parse client key", err)
	}

	blob := make([]byte, kp.Size())
	if _, err := io.ReadFull(rw, blob); err != nil {
		return nil, handshakeErr("read session key", eofAsClosed(err))
	}
	raw, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, kp.private, blob, oaepLabel)
	if err != nil {
		return nil, handshakeErr("decrypt session key", err)
	}
	if len(raw) != len(fernet.Key{}) {
		return nil, handshakeErr("session key", fmt.Errorf("unexpected length %d", len(raw)))
	}

	var key fernet.Key
	copy(key[:], raw)
	return NewChannel(rw, &key), nil
}

// ClientHandshake runs the initiator side against ServerHandshake.
func ClientHandshake(rw io.ReadWriter, kp *KeyPair) (*Channel, error) {
	serverPEM, err := readKeyBlock(rw)
	if err != nil {
		return nil, handshakeErr("read server key", err)
	}
	serverKey, err := parsePublicKey(serverPEM)
	if err != nil {
		return nil, handshakeErr("parse server key", err)
	}

	if err := writeKeyBlock(rw, kp.PublicPEM()); err != nil {
		return nil, handshakeErr("send client key", err)
	}

	key, err := NewSessionKey()
	if err != nil {
		return nil, handshakeErr("session key", err)
	}
	blob, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, serverKey, key[:], oaepLabel)
	if err != nil {
		return nil, handshakeErr("encrypt session key", err)
	}
	if _, err := rw.Write(blob); err != nil {
		return nil, handshakeErr("send session key", err)
	}
	return NewChannel(rw, key), nil
}

// NewSessionKey returns a fresh random symmetric key.
func NewSessionKey() (*fernet.Key, error) {
	var key fernet.Key
	if err := key.Generate(); err != nil {
		return nil, err
	}
	return &key, nil
}

func writeKeyBlock(w io.Writer, data []byte) error {
	buf := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(buf, uint16(len(data)))
	copy(buf[2:], data)
	_, err := w.Write(buf)
	return err
}

func readKeyBlock(r io.Reader) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, eofAsClosed(err)
	}
	n := binary.BigEndian.Uint16(header[:])
	if n == 0 || n > maxKeyBlock {
		return nil, fmt.Errorf("bad key block length %d", n)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, eofAsClosed(err)
	}
	return data, nil
}

func eofAsClosed(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return framing.ErrConnectionClosed
	}
	return err
}

func handshakeErr(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrHandshake, step, err)
}
