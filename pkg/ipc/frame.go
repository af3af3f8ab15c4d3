// Package ipc implements the control socket: a unix socket carrying JSON
// requests and responses, each framed by an 8-byte little-endian length.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	// HeaderLen is the size of the length prefix.
	HeaderLen = 8

	// MaxFrameSize bounds the payload of a single frame.
	MaxFrameSize = 16 << 20
)

var (
	ErrFrameTooLarge = errors.New("ipc: frame exceeds maximum size")
	ErrShortHeader   = errors.New("ipc: truncated length prefix")
	ErrShortPayload  = errors.New("ipc: payload shorter than declared length")
	ErrInvalidUTF8   = errors.New("ipc: payload is not valid UTF-8")
)

// WriteFrame writes the length prefix and payload with a single Write.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	buf := make([]byte, HeaderLen+len(payload))
	binary.LittleEndian.PutUint64(buf, uint64(len(payload)))
	copy(buf[HeaderLen:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one frame. It returns io.EOF only if the stream ended
// cleanly before the first byte of the frame.
func ReadFrame(r io.Reader) ([]byte, error) {
	hdr := make([]byte, HeaderLen)
	if _, err := io.ReadFull(r, hdr); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}

	n := binary.LittleEndian.Uint64(hdr)
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrShortPayload
		}
		return nil, err
	}
	if !utf8.Valid(payload) {
		return nil, ErrInvalidUTF8
	}
	return payload, nil
}

// WriteJSON encodes v and writes it as one frame.
func WriteJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ipc: encode: %w", err)
	}
	return WriteFrame(w, data)
}

// ReadJSON reads one frame and decodes it into v. Framing errors are
// returned unwrapped; a decode error is wrapped in *DecodeError so callers
// can tell a bad message from a broken stream.
func ReadJSON(r io.Reader, v any) error {
	data, err := ReadFrame(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// DecodeError reports a well-framed payload that is not the expected JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "ipc: decode: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }
