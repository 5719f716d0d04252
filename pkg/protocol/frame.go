package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frame constants.
const (
	// LengthSize is the size of the length prefix in bytes.
	LengthSize = 4

	// HeaderSize is the length prefix plus the opcode.
	HeaderSize = 6

	// DefaultMaxFrameSize caps the declared length accepted by ReadFrame (1MB).
	DefaultMaxFrameSize = 1 << 20
)

// Frame is one decoded message: its declared length, opcode and the raw
// payload bytes that follow the opcode.
//
//	┌──────────────────────┬──────────────┬──────────────────────────┐
//	│ Length (uint32 BE)   │ Opcode (BE)  │ Payload                  │
//	└──────────────────────┴──────────────┴──────────────────────────┘
type Frame struct {
	Length  uint32
	Opcode  Opcode
	Payload []byte
}

// Encode returns the wire form of the frame. Length is recomputed from the
// payload; the Length field of f is ignored.
func (f *Frame) Encode() []byte {
	buf := make([]byte, HeaderSize+len(f.Payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(2+len(f.Payload)))
	binary.BigEndian.PutUint16(buf[4:6], uint16(f.Opcode))
	copy(buf[HeaderSize:], f.Payload)
	return buf
}

// Reader returns a reader positioned at the first payload field.
func (f *Frame) Reader() *Reader {
	return NewReader(f.Payload)
}

// DecodeFrame decodes a complete frame and checks that the declared length
// matches the buffer exactly. The payload is copied.
func DecodeFrame(data []byte) (*Frame, error) {
	r := NewReader(data)
	length, op, err := r.ReadHeader()
	if err != nil {
		return nil, err
	}
	if length < 2 {
		return nil, fmt.Errorf("%w: declared %d, minimum 2", ErrInvalidLength, length)
	}
	if uint64(length) != uint64(len(data)-LengthSize) {
		return nil, fmt.Errorf("%w: declared %d, buffer holds %d", ErrInvalidLength, length, len(data)-LengthSize)
	}
	payload, _ := r.ReadBytes(r.Remaining())
	return &Frame{Length: length, Opcode: op, Payload: payload}, nil
}

// ReadFrame reads one frame from a byte stream. Declared lengths above
// maxSize (DefaultMaxFrameSize when maxSize <= 0) are rejected before any
// allocation.
func ReadFrame(rd io.Reader, maxSize int) (*Frame, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}

	var header [HeaderSize]byte
	if _, err := io.ReadFull(rd, header[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[0:4])
	if length < 2 {
		return nil, fmt.Errorf("%w: declared %d, minimum 2", ErrInvalidLength, length)
	}
	if uint64(length) > uint64(maxSize) {
		return nil, fmt.Errorf("%w: declared %d, limit %d", ErrFrameTooLarge, length, maxSize)
	}

	payload := make([]byte, length-2)
	if _, err := io.ReadFull(rd, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	return &Frame{
		Length:  length,
		Opcode:  Opcode(binary.BigEndian.Uint16(header[4:6])),
		Payload: payload,
	}, nil
}

// WriteFrame writes an already finalized frame buffer to w in one call.
func WriteFrame(w io.Writer, frame []byte) error {
	if len(frame) < HeaderSize {
		return fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(frame))
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
