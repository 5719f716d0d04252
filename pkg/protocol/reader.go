package protocol

import (
	"strings"
	"unicode/utf8"
)

// Reader is a stateful cursor over one inbound frame.
//
// Every read checks the remaining byte count before touching the buffer and
// advances the cursor only on success. A Reader must not be shared between
// goroutines; each inbound message gets its own.
type Reader struct {
	buf []byte
	pos int
}

// NewReader creates a reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// NewReaderAt creates a reader positioned at offset. Offsets outside the
// buffer are clamped so that every subsequent read reports a short buffer.
func NewReaderAt(buf []byte, offset int) *Reader {
	if offset < 0 {
		offset = 0
	}
	if offset > len(buf) {
		offset = len(buf)
	}
	return &Reader{buf: buf, pos: offset}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

// Position returns the current read position.
func (r *Reader) Position() int {
	return r.pos
}

// EOF returns true if all bytes have been read.
func (r *Reader) EOF() bool {
	return r.pos >= len(r.buf)
}

// need returns a *ShortBufferError when fewer than n bytes remain.
func (r *Reader) need(op string, n int) error {
	if n < 0 || r.Remaining() < n {
		return &ShortBufferError{Op: op, Offset: r.pos, Need: n, Have: r.Remaining()}
	}
	return nil
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int) error {
	if err := r.need("Skip", n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// ReadBytes reads exactly n bytes and returns a copy of them.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need("ReadBytes", n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+n])
	r.pos += n
	return b, nil
}

// ReadBoolean reads one byte. Zero is false, any other value is true.
func (r *Reader) ReadBoolean() (bool, error) {
	if err := r.need("ReadBoolean", 1); err != nil {
		return false, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b != 0, nil
}

// ReadUint16 reads a uint16 in big-endian byte order.
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.need("ReadUint16", 2); err != nil {
		return 0, err
	}
	v := uint16(r.buf[r.pos])<<8 | uint16(r.buf[r.pos+1])
	r.pos += 2
	return v, nil
}

// ReadUint32 reads a uint32 in big-endian byte order.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need("ReadUint32", 4); err != nil {
		return 0, err
	}
	v := uint32(r.buf[r.pos])<<24 | uint32(r.buf[r.pos+1])<<16 |
		uint32(r.buf[r.pos+2])<<8 | uint32(r.buf[r.pos+3])
	r.pos += 4
	return v, nil
}

// ReadInt16 reads an int16 in big-endian byte order.
func (r *Reader) ReadInt16() (int16, error) {
	if err := r.need("ReadInt16", 2); err != nil {
		return 0, err
	}
	v, _ := r.ReadUint16()
	return int16(v), nil
}

// ReadInt32 reads an int32 in big-endian byte order.
func (r *Reader) ReadInt32() (int32, error) {
	if err := r.need("ReadInt32", 4); err != nil {
		return 0, err
	}
	v, _ := r.ReadUint32()
	return int32(v), nil
}

// ReadString reads a uint16 length prefix followed by that many bytes of
// UTF-8 text. On a short buffer the cursor stays before the prefix.
// Invalid UTF-8 sequences are replaced with U+FFFD.
func (r *Reader) ReadString() (string, error) {
	start := r.pos
	length, err := r.ReadUint16()
	if err != nil {
		return "", err
	}
	n := int(length)
	if r.Remaining() < n {
		short := &ShortBufferError{Op: "ReadString", Offset: start, Need: 2 + n, Have: len(r.buf) - start}
		r.pos = start
		return "", short
	}
	raw := r.buf[r.pos : r.pos+n]
	r.pos += n
	if !utf8.Valid(raw) {
		return strings.ToValidUTF8(string(raw), "\uFFFD"), nil
	}
	return string(raw), nil
}

// ReadHeader reads the 4-byte length and the 2-byte opcode at the current
// position. The length is returned as found on the wire and is not checked
// against the buffer size; use DecodeFrame for strict validation.
func (r *Reader) ReadHeader() (uint32, Opcode, error) {
	if err := r.need("ReadHeader", HeaderSize); err != nil {
		return 0, 0, err
	}
	length, _ := r.ReadUint32()
	op, _ := r.ReadUint16()
	return length, Opcode(op), nil
}
