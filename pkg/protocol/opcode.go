package protocol

import "strconv"

// Opcode identifies the semantics and field layout of a frame. The codec
// treats it as an opaque tag.
type Opcode uint16

const (
	OpcodeEntityVisualState Opcode = 374  // identity, category, state code (both directions)
	OpcodeUserFigure        Opcode = 1640 // identity, figure (server → client)
	OpcodeUpdateFigure      Opcode = 2730 // figure, gender (client → server)
)

// String returns the name of a known opcode, or its decimal value.
func (op Opcode) String() string {
	switch op {
	case OpcodeEntityVisualState:
		return "EntityVisualState"
	case OpcodeUserFigure:
		return "UserFigure"
	case OpcodeUpdateFigure:
		return "UpdateFigure"
	default:
		return strconv.Itoa(int(op))
	}
}

// Known reports whether op has a typed codec in this package.
func (op Opcode) Known() bool {
	switch op {
	case OpcodeEntityVisualState, OpcodeUserFigure, OpcodeUpdateFigure:
		return true
	default:
		return false
	}
}
