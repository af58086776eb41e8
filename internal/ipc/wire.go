package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// WriteMessage frames msg as tag byte + 4-byte big-endian length + JSON
// payload and writes it to w.
func WriteMessage(w io.Writer, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %T: %w", msg, err)
	}

	header := make([]byte, 5)
	header[0] = byte(msg.Tag())
	binary.BigEndian.PutUint32(header[1:], uint32(len(payload)))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// ReadMessage reads one framed message from r.
func ReadMessage(r io.Reader) (Message, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	tag := Tag(header[0])
	length := binary.BigEndian.Uint32(header[1:])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	msg, ok := newByTag(tag)
	if !ok {
		return nil, fmt.Errorf("unknown wire tag %d", tag)
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, msg); err != nil {
			return nil, fmt.Errorf("unmarshal %T: %w", msg, err)
		}
	}
	return msg, nil
}
