// Package bridge runs the document boundary over a byte stream, so the
// loader and adapters in this process can drive a script-hosting page owned
// by another process. One side speaks through RemoteDocument, the other
// serves its local page through an Agent; both share a framed, binary
// message protocol.
package bridge

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Kind says how a message participates in the conversation.
type Kind uint8

const (
	KindRequest  Kind = 0x01 // expects a response with the same sequence
	KindResponse Kind = 0x02 // answers a request
	KindNotify   Kind = 0x03 // one-way, no response
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "Request"
	case KindResponse:
		return "Response"
	case KindNotify:
		return "Notify"
	default:
		return "Unknown"
	}
}

// Header is one bridge message: a verb name, an error flag and an opaque
// body. Bodies are JSON for the built-in document and maps verbs; custom
// verbs may carry any encoding.
type Header struct {
	Name    string
	IsError bool
	Kind    Kind
	Body    []byte
}

// MarshalBinary encodes the header into binary format.
func (h *Header) MarshalBinary() ([]byte, error) {
	var buffer bytes.Buffer

	nameBytes := []byte(h.Name)
	nameLen := uint32(len(nameBytes))

	if err := binary.Write(&buffer, binary.BigEndian, nameLen); err != nil {
		return nil, fmt.Errorf("failed to write name length: %w", err)
	}
	if _, err := buffer.Write(nameBytes); err != nil {
		return nil, fmt.Errorf("failed to write name: %w", err)
	}

	var isErrorByte byte
	if h.IsError {
		isErrorByte = 1
	}
	if err := binary.Write(&buffer, binary.BigEndian, isErrorByte); err != nil {
		return nil, fmt.Errorf("failed to write IsError flag: %w", err)
	}

	if err := binary.Write(&buffer, binary.BigEndian, uint8(h.Kind)); err != nil {
		return nil, fmt.Errorf("failed to write message kind: %w", err)
	}

	bodyLen := uint32(len(h.Body))
	if err := binary.Write(&buffer, binary.BigEndian, bodyLen); err != nil {
		return nil, fmt.Errorf("failed to write body length: %w", err)
	}
	if _, err := buffer.Write(h.Body); err != nil {
		return nil, fmt.Errorf("failed to write body: %w", err)
	}

	return buffer.Bytes(), nil
}

// UnmarshalBinary decodes the header from binary format.
func (h *Header) UnmarshalBinary(data []byte) error {
	buffer := bytes.NewReader(data)

	var nameLen uint32
	if err := binary.Read(buffer, binary.BigEndian, &nameLen); err != nil {
		return fmt.Errorf("failed to read name length: %w", err)
	}
	if nameLen > uint32(buffer.Len()) {
		return fmt.Errorf("name length %d exceeds message size", nameLen)
	}

	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(buffer, nameBytes); err != nil {
		return fmt.Errorf("failed to read name: %w", err)
	}
	h.Name = string(nameBytes)

	var isErrorByte byte
	if err := binary.Read(buffer, binary.BigEndian, &isErrorByte); err != nil {
		return fmt.Errorf("failed to read IsError flag: %w", err)
	}
	h.IsError = isErrorByte == 1

	var kindByte uint8
	if err := binary.Read(buffer, binary.BigEndian, &kindByte); err != nil {
		return fmt.Errorf("failed to read message kind: %w", err)
	}
	h.Kind = Kind(kindByte)

	var bodyLen uint32
	if err := binary.Read(buffer, binary.BigEndian, &bodyLen); err != nil {
		return fmt.Errorf("failed to read body length: %w", err)
	}
	if bodyLen > uint32(buffer.Len()) {
		return fmt.Errorf("body length %d exceeds message size", bodyLen)
	}

	h.Body = make([]byte, bodyLen)
	if _, err := io.ReadFull(buffer, h.Body); err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	return nil
}
