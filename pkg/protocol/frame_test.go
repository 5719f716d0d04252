package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameEncodeDecode(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
	}{
		{"empty_payload", Frame{Opcode: 1}},
		{"visual_state", Frame{Opcode: OpcodeEntityVisualState, Payload: []byte{0, 0, 0, 1, 0, 0, 0, 0}}},
		{"max_opcode", Frame{Opcode: 0xFFFF, Payload: []byte("raw")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			encoded := tc.frame.Encode()
			if len(encoded) != HeaderSize+len(tc.frame.Payload) {
				t.Errorf("Encode() length = %d, want %d", len(encoded), HeaderSize+len(tc.frame.Payload))
			}

			decoded, err := DecodeFrame(encoded)
			if err != nil {
				t.Fatalf("DecodeFrame() error = %v", err)
			}
			if decoded.Opcode != tc.frame.Opcode {
				t.Errorf("Opcode = %v, want %v", decoded.Opcode, tc.frame.Opcode)
			}
			if int(decoded.Length) != len(encoded)-LengthSize {
				t.Errorf("Length = %d, want %d", decoded.Length, len(encoded)-LengthSize)
			}
			if !bytes.Equal(decoded.Payload, tc.frame.Payload) && len(tc.frame.Payload) > 0 {
				t.Errorf("Payload = % x, want % x", decoded.Payload, tc.frame.Payload)
			}
		})
	}
}

func TestDecodeFrameRejectsBadLength(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"too_short", []byte{0, 0, 0}, ErrShortBuffer},
		{"length_below_opcode", []byte{0, 0, 0, 1, 0, 5}, ErrInvalidLength},
		{"length_too_large", []byte{0, 0, 0, 9, 0, 5, 1}, ErrInvalidLength},
		{"length_too_small", []byte{0, 0, 0, 2, 0, 5, 1, 2}, ErrInvalidLength},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeFrame(tc.data)
			if !errors.Is(err, tc.want) {
				t.Errorf("DecodeFrame() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestReadFrameStream(t *testing.T) {
	first, _ := NewWriter(OpcodeEntityVisualState).WriteInt32(1).WriteString("M").WriteString("hd-1").Finalize()
	second, _ := NewWriter(7).Finalize()

	var stream bytes.Buffer
	if err := WriteFrame(&stream, first); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	if err := WriteFrame(&stream, second); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}

	f1, err := ReadFrame(&stream, 0)
	if err != nil {
		t.Fatalf("ReadFrame() #1 error = %v", err)
	}
	if f1.Opcode != OpcodeEntityVisualState {
		t.Errorf("frame #1 opcode = %v", f1.Opcode)
	}
	msg, err := DecodeEntityVisualStateFrom(f1.Reader())
	if err != nil {
		t.Fatalf("decode frame #1: %v", err)
	}
	if msg.StateCode != "hd-1" {
		t.Errorf("frame #1 state code = %q", msg.StateCode)
	}

	f2, err := ReadFrame(&stream, 0)
	if err != nil {
		t.Fatalf("ReadFrame() #2 error = %v", err)
	}
	if f2.Opcode != 7 || len(f2.Payload) != 0 {
		t.Errorf("frame #2 = %+v", f2)
	}

	if _, err := ReadFrame(&stream, 0); err != io.EOF {
		t.Errorf("ReadFrame() at end = %v, want io.EOF", err)
	}
}

func TestReadFrameLimits(t *testing.T) {
	huge := []byte{0x00, 0x10, 0x00, 0x00, 0x00, 0x01}
	if _, err := ReadFrame(bytes.NewReader(huge), 1024); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("ReadFrame() error = %v, want ErrFrameTooLarge", err)
	}

	cut := []byte{0x00, 0x00, 0x00, 0x06, 0x00, 0x01, 0xAA}
	if _, err := ReadFrame(bytes.NewReader(cut), 0); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadFrame() error = %v, want io.ErrUnexpectedEOF", err)
	}

	if err := WriteFrame(io.Discard, []byte{1, 2}); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("WriteFrame() error = %v, want ErrInvalidLength", err)
	}
}
