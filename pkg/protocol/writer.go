package protocol

import "math"

// Writer accumulates one outbound frame.
//
// NewWriter reserves the 6 header bytes up front. Write methods append in
// big-endian order and return the writer so calls can be chained; the first
// failure is kept and reported by Finalize. A writer is single-use: after
// Finalize every further write is rejected, so a returned buffer never
// carries a stale length prefix.
type Writer struct {
	buf       []byte
	opcode    Opcode
	err       error
	finalized bool
}

// NewWriter creates a writer for a frame with the given opcode.
func NewWriter(op Opcode) *Writer {
	return NewWriterWithCap(op, 64)
}

// NewWriterWithCap creates a writer with the specified initial capacity.
func NewWriterWithCap(op Opcode, cap int) *Writer {
	if cap < HeaderSize {
		cap = HeaderSize
	}
	w := &Writer{buf: make([]byte, 0, cap), opcode: op}
	w.buf = append(w.buf, 0, 0, 0, 0)
	w.appendUint16(uint16(op))
	return w
}

// Opcode returns the opcode the writer was created with.
func (w *Writer) Opcode() Opcode {
	return w.opcode
}

// Len returns the number of bytes written so far, header included.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Err returns the first error recorded by a write, if any.
func (w *Writer) Err() error {
	return w.err
}

// writable records ErrWriterFinalized on a consumed writer.
func (w *Writer) writable() bool {
	if w.finalized {
		if w.err == nil {
			w.err = ErrWriterFinalized
		}
		return false
	}
	return w.err == nil
}

func (w *Writer) appendUint16(v uint16) {
	w.buf = append(w.buf, byte(v>>8), byte(v))
}

func (w *Writer) appendUint32(v uint32) {
	w.buf = append(w.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// WriteInt32 appends an int32 in big-endian byte order.
func (w *Writer) WriteInt32(v int32) *Writer {
	if w.writable() {
		w.appendUint32(uint32(v))
	}
	return w
}

// WriteInt16 appends an int16 in big-endian byte order.
func (w *Writer) WriteInt16(v int16) *Writer {
	if w.writable() {
		w.appendUint16(uint16(v))
	}
	return w
}

// WriteBoolean appends a boolean as a single byte (0x00 or 0x01).
func (w *Writer) WriteBoolean(v bool) *Writer {
	if w.writable() {
		if v {
			w.buf = append(w.buf, 0x01)
		} else {
			w.buf = append(w.buf, 0x00)
		}
	}
	return w
}

// WriteString appends a uint16 byte-length prefix and the UTF-8 bytes of s.
// Strings longer than 65535 bytes record ErrStringTooLong.
func (w *Writer) WriteString(s string) *Writer {
	if !w.writable() {
		return w
	}
	if len(s) > math.MaxUint16 {
		w.err = ErrStringTooLong
		return w
	}
	w.appendUint16(uint16(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

// Finalize backpatches the length prefix and returns the complete frame.
// The writer is consumed by the call.
func (w *Writer) Finalize() ([]byte, error) {
	if w.finalized {
		return nil, ErrWriterFinalized
	}
	w.finalized = true
	if w.err != nil {
		return nil, w.err
	}
	if uint64(len(w.buf)-4) > math.MaxUint32 {
		return nil, ErrFrameTooLarge
	}
	length := uint32(len(w.buf) - 4)
	w.buf[0] = byte(length >> 24)
	w.buf[1] = byte(length >> 16)
	w.buf[2] = byte(length >> 8)
	w.buf[3] = byte(length)
	out := w.buf
	w.buf = nil
	return out, nil
}
