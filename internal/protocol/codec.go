package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// One frame on the wire is a 2-byte big-endian length prefix followed by
// that many bytes of UTF-8 JSON.
const maxFrameSize = 1<<16 - 1

var (
	ErrFrameTooLarge = errors.New("frame exceeds the 64KiB wire limit")
	ErrMalformed     = errors.New("malformed message payload")
)

// WriteFrame - serializes v to JSON and writes one framed message.
func WriteFrame(writer io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if len(body) > maxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(body))
	}

	buf := make([]byte, 2, 2+len(body))
	binary.BigEndian.PutUint16(buf, uint16(len(body)))
	buf = append(buf, body...)

	if _, err = writer.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	return nil
}

// ReadFrame - reads exactly one framed message body.
func ReadFrame(reader io.Reader) ([]byte, error) {
	header := make([]byte, 2)
	if _, err := io.ReadFull(reader, header); err != nil {
		return nil, fmt.Errorf("failed to read frame header: %w", err)
	}

	body := make([]byte, binary.BigEndian.Uint16(header))
	if _, err := io.ReadFull(reader, body); err != nil {
		return nil, fmt.Errorf("failed to read frame body: %w", err)
	}

	return body, nil
}

// DecodeFrame - reads one frame and unmarshals it into v. A frame that
// arrives intact but does not parse is reported as ErrMalformed so callers
// can tell a protocol error from a transport error.
func DecodeFrame(reader io.Reader, v any) error {
	body, err := ReadFrame(reader)
	if err != nil {
		return err
	}

	if err = json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformed, err)
	}

	return nil
}
