package bridge

import (
	"fmt"
	"io"
)

// frameHeaderSize is the fixed prefix of every frame: a uint32 sequence
// number followed by a uint32 payload length, both big endian.
const frameHeaderSize = 8

// maxFrameSize bounds a single frame payload. Bridge messages are small
// control records; anything past this is a corrupt stream.
const maxFrameSize = 16 << 20

// writeFrame writes one framed message. Callers serialize access to w.
func writeFrame(w io.Writer, seq uint32, data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("frame length %d exceeds maximum size", len(data))
	}

	header := make([]byte, frameHeaderSize)
	header[0] = byte(seq >> 24)
	header[1] = byte(seq >> 16)
	header[2] = byte(seq >> 8)
	header[3] = byte(seq)
	header[4] = byte(len(data) >> 24)
	header[5] = byte(len(data) >> 16)
	header[6] = byte(len(data) >> 8)
	header[7] = byte(len(data))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}
	if len(data) > 0 {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write frame payload: %w", err)
		}
	}
	return nil
}

// readFrame reads one framed message.
func readFrame(r io.Reader) (seq uint32, data []byte, err error) {
	header := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}

	seq = uint32(header[0])<<24 | uint32(header[1])<<16 | uint32(header[2])<<8 | uint32(header[3])
	length := uint32(header[4])<<24 | uint32(header[5])<<16 | uint32(header[6])<<8 | uint32(header[7])
	if length > maxFrameSize {
		return 0, nil, fmt.Errorf("frame length %d exceeds maximum size", length)
	}

	data = make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return 0, nil, fmt.Errorf("failed to read frame payload: %w", err)
	}
	return seq, data, nil
}
