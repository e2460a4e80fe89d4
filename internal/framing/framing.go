// Package framing implements the native-messaging wire format: a 4-byte
// little-endian payload length followed by that many bytes of UTF-8 JSON.
//
// The browser side uses the host's native byte order. Little-endian is fixed
// here as the wire contract so that forwarded frames and test fixtures are
// portable.
package framing

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// headerLength is the size of the length prefix.
const headerLength = 4

// MaxPayload is the largest payload accepted or sent (1 MiB - 1).
const MaxPayload = 1<<20 - 1

var (
	// ErrDisconnected reports that the peer closed the stream. It is not
	// fatal: the caller stops reading but keeps the process alive.
	ErrDisconnected = errors.New("framing: peer disconnected")
	// ErrFrameTooLarge is returned by WriteFrame for payloads of 1 MiB or more.
	ErrFrameTooLarge = errors.New("framing: payload exceeds 1 MiB limit")
)

// SizeError reports a frame whose declared length is zero or above
// MaxPayload. The frame has been discarded and the stream is positioned at
// the next length prefix.
type SizeError struct {
	Length uint32
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("framing: invalid frame length %d", e.Length)
}

// ReadFrame reads exactly one frame from r and returns its payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [headerLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrDisconnected
		}
		return nil, fmt.Errorf("framing: read header: %w", err)
	}

	length := binary.LittleEndian.Uint32(header[:])
	if length == 0 || length > MaxPayload {
		if length > 0 {
			if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
				return nil, ErrDisconnected
			}
		}
		return nil, &SizeError{Length: length}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrDisconnected
		}
		return nil, fmt.Errorf("framing: read payload: %w", err)
	}
	return payload, nil
}

// WriteFrame writes payload as one frame using a single Write call.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayload {
		return ErrFrameTooLarge
	}
	buf := make([]byte, headerLength+len(payload))
	binary.LittleEndian.PutUint32(buf[:headerLength], uint32(len(payload)))
	copy(buf[headerLength:], payload)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("framing: write frame: %w", err)
	}
	return nil
}

// WriteJSON marshals v and writes it as one frame.
func WriteJSON(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("framing: marshal: %w", err)
	}
	return WriteFrame(w, payload)
}
