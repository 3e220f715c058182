// Package framing wraps payloads in a 4-byte big-endian length prefix so a
// stream reader can recover message boundaries.
package framing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	HeaderSize = 4
	// MaxFrameSize bounds the declared length a peer may announce.
	MaxFrameSize = 1 << 20
)

var (
	// ErrConnectionClosed is returned when the peer goes away before a whole
	// frame has been read.
	ErrConnectionClosed = errors.New("connection closed")
	ErrFrameTooLarge    = errors.New("frame too large")
)

// Encode prepends the length header to payload.
func Encode(payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf
}

// Write sends one frame in a single write call.
func Write(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	if _, err := w.Write(Encode(payload)); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Decode blocks until a full frame is available and returns its payload.
// Short reads are retried; EOF before the frame completes is ErrConnectionClosed.
func Decode(r io.Reader) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, closedErr("length", err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: peer declared %d bytes", ErrFrameTooLarge, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, closedErr("payload", err)
	}
	return payload, nil
}

func closedErr(part string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: before %s received", ErrConnectionClosed, part)
	}
	return fmt.Errorf("read %s: %w", part, err)
}
