package protocol

import "fmt"

// EntityVisualState carries the visual state of one entity in the room.
type EntityVisualState struct {
	Identity  int32  // Entity identifier
	Category  string // Category, e.g. gender
	StateCode string // Figure string such as "hr-100.hd-180"
}

// EncodeEntityVisualState encodes an EntityVisualState frame.
func EncodeEntityVisualState(m *EntityVisualState) ([]byte, error) {
	w := NewWriter(OpcodeEntityVisualState)
	EncodeEntityVisualStateTo(w, m)
	return w.Finalize()
}

// EncodeEntityVisualStateTo writes the message fields using the provided writer.
func EncodeEntityVisualStateTo(w *Writer, m *EntityVisualState) {
	w.WriteInt32(m.Identity).
		WriteString(m.Category).
		WriteString(m.StateCode)
}

// DecodeEntityVisualState decodes a complete EntityVisualState frame.
func DecodeEntityVisualState(data []byte) (*EntityVisualState, error) {
	r := NewReader(data)
	if err := expectOpcode(r, OpcodeEntityVisualState); err != nil {
		return nil, err
	}
	return DecodeEntityVisualStateFrom(r)
}

// DecodeEntityVisualStateFrom reads the message fields from a reader
// positioned after the header.
func DecodeEntityVisualStateFrom(r *Reader) (*EntityVisualState, error) {
	identity, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}

	category, err := r.ReadString()
	if err != nil {
		return nil, err
	}

	stateCode, err := r.ReadString()
	if err != nil {
		return nil, err
	}

	return &EntityVisualState{
		Identity:  identity,
		Category:  category,
		StateCode: stateCode,
	}, nil
}

// UserFigure announces the figure of the logged-in user.
type UserFigure struct {
	Identity int32
	Figure   string
}

// EncodeUserFigure encodes a UserFigure frame.
func EncodeUserFigure(m *UserFigure) ([]byte, error) {
	w := NewWriter(OpcodeUserFigure)
	w.WriteInt32(m.Identity).WriteString(m.Figure)
	return w.Finalize()
}

// DecodeUserFigureFrom reads the message fields from a reader positioned
// after the header.
func DecodeUserFigureFrom(r *Reader) (*UserFigure, error) {
	identity, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	figure, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	return &UserFigure{Identity: identity, Figure: figure}, nil
}

// UpdateFigure asks the server to change the user's figure.
type UpdateFigure struct {
	Figure string
	Gender string
}

// EncodeUpdateFigure encodes an UpdateFigure frame.
func EncodeUpdateFigure(m *UpdateFigure) ([]byte, error) {
	w := NewWriter(OpcodeUpdateFigure)
	w.WriteString(m.Figure).WriteString(m.Gender)
	return w.Finalize()
}

// DecodeUpdateFigureFrom reads the message fields from a reader positioned
// after the header.
func DecodeUpdateFigureFrom(r *Reader) (*UpdateFigure, error) {
	figure, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	gender, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	return &UpdateFigure{Figure: figure, Gender: gender}, nil
}

func expectOpcode(r *Reader, want Opcode) error {
	_, op, err := r.ReadHeader()
	if err != nil {
		return err
	}
	if op != want {
		return fmt.Errorf("%w: got %s, want %s", ErrOpcodeMismatch, op, want)
	}
	return nil
}
