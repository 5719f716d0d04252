package protocol

import "fmt"

// FieldKind identifies the wire type of a payload field.
type FieldKind uint8

const (
	KindInt32 FieldKind = iota + 1
	KindInt16
	KindBoolean
	KindString
)

// String returns the string representation of the field kind.
func (k FieldKind) String() string {
	switch k {
	case KindInt32:
		return "int32"
	case KindInt16:
		return "int16"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Field is one typed payload value. Only the member matching Kind is used.
type Field struct {
	Kind FieldKind
	Int  int32 // KindInt32 and KindInt16
	Bool bool
	Str  string
}

// Int32Field returns an int32 field.
func Int32Field(v int32) Field { return Field{Kind: KindInt32, Int: v} }

// Int16Field returns an int16 field.
func Int16Field(v int16) Field { return Field{Kind: KindInt16, Int: int32(v)} }

// BoolField returns a boolean field.
func BoolField(v bool) Field { return Field{Kind: KindBoolean, Bool: v} }

// StringField returns a string field.
func StringField(v string) Field { return Field{Kind: KindString, Str: v} }

// String formats the field value for logs and the CLI.
func (f Field) String() string {
	switch f.Kind {
	case KindInt32, KindInt16:
		return fmt.Sprintf("%s(%d)", f.Kind, f.Int)
	case KindBoolean:
		return fmt.Sprintf("%s(%t)", f.Kind, f.Bool)
	case KindString:
		return fmt.Sprintf("%s(%q)", f.Kind, f.Str)
	default:
		return "unknown"
	}
}

// EncodeFields builds a finalized frame from an opcode and an ordered field
// list.
func EncodeFields(op Opcode, fields []Field) ([]byte, error) {
	w := NewWriter(op)
	for i, f := range fields {
		switch f.Kind {
		case KindInt32:
			w.WriteInt32(f.Int)
		case KindInt16:
			w.WriteInt16(int16(f.Int))
		case KindBoolean:
			w.WriteBoolean(f.Bool)
		case KindString:
			w.WriteString(f.Str)
		default:
			return nil, fmt.Errorf("%w: field %d has kind %d", ErrUnknownFieldKind, i, f.Kind)
		}
	}
	return w.Finalize()
}

// DecodeFields reads a frame header and then one field per entry of layout.
// Trailing bytes after the last field are ignored.
func DecodeFields(data []byte, layout []FieldKind) (Opcode, []Field, error) {
	r := NewReader(data)
	_, op, err := r.ReadHeader()
	if err != nil {
		return 0, nil, err
	}
	fields, err := ReadFields(r, layout)
	if err != nil {
		return op, nil, err
	}
	return op, fields, nil
}

// ReadFields reads one field per entry of layout from r.
func ReadFields(r *Reader, layout []FieldKind) ([]Field, error) {
	fields := make([]Field, 0, len(layout))
	for i, kind := range layout {
		var f Field
		var err error
		switch kind {
		case KindInt32:
			var v int32
			v, err = r.ReadInt32()
			f = Int32Field(v)
		case KindInt16:
			var v int16
			v, err = r.ReadInt16()
			f = Int16Field(v)
		case KindBoolean:
			var v bool
			v, err = r.ReadBoolean()
			f = BoolField(v)
		case KindString:
			var v string
			v, err = r.ReadString()
			f = StringField(v)
		default:
			return nil, fmt.Errorf("%w: layout entry %d has kind %d", ErrUnknownFieldKind, i, kind)
		}
		if err != nil {
			return nil, fmt.Errorf("field %d (%s): %w", i, kind, err)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// Layout returns the kinds of fields, in order.
func Layout(fields []Field) []FieldKind {
	kinds := make([]FieldKind, len(fields))
	for i, f := range fields {
		kinds[i] = f.Kind
	}
	return kinds
}

// LayoutOf returns the known inbound field layout for op.
func LayoutOf(op Opcode) ([]FieldKind, bool) {
	switch op {
	case OpcodeEntityVisualState:
		return []FieldKind{KindInt32, KindString, KindString}, true
	case OpcodeUserFigure:
		return []FieldKind{KindInt32, KindString}, true
	case OpcodeUpdateFigure:
		return []FieldKind{KindString, KindString}, true
	default:
		return nil, false
	}
}
