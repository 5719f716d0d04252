package protocol

import (
	"errors"
	"fmt"
	"io"
)

// Common codec errors.
var (
	ErrShortBuffer      = errors.New("protocol: insufficient bytes remaining")
	ErrStringTooLong    = errors.New("protocol: string exceeds 65535 bytes")
	ErrWriterFinalized  = errors.New("protocol: writer already finalized")
	ErrInvalidLength    = errors.New("protocol: invalid frame length")
	ErrFrameTooLarge    = errors.New("protocol: frame exceeds size limit")
	ErrOpcodeMismatch   = errors.New("protocol: unexpected opcode")
	ErrUnknownFieldKind = errors.New("protocol: unknown field kind")
)

// ShortBufferError reports a read that needed more bytes than the buffer had
// left. The cursor is not advanced when it is returned.
type ShortBufferError struct {
	Op     string // Read operation, e.g. "ReadInt32"
	Offset int    // Cursor position when the read started
	Need   int    // Bytes the read required
	Have   int    // Bytes remaining in the buffer
}

// Error implements the error interface.
func (e *ShortBufferError) Error() string {
	return fmt.Sprintf("protocol: %s at offset %d needs %d bytes, %d remaining",
		e.Op, e.Offset, e.Need, e.Have)
}

// Is lets errors.Is match both ErrShortBuffer and io.ErrUnexpectedEOF.
func (e *ShortBufferError) Is(target error) bool {
	return target == ErrShortBuffer || target == io.ErrUnexpectedEOF
}
