// Package protocol implements the binary wire format spoken by the hotel
// server that wiretap sits in front of.
//
// Every message travels as one Frame: a length prefix, an opcode and a
// payload made of fixed-layout typed fields. The package provides a
// bounds-checked Reader for inbound frames, a single-use Writer for outbound
// frames and typed codecs for the messages wiretap understands.
//
// # Wire Format
//
//	┌──────────────────────┬──────────────┬──────────────────────────┐
//	│ Length               │ Opcode       │ Payload                  │
//	│ (4 bytes, uint32 BE) │ (2 bytes BE) │ (Length - 2 bytes)       │
//	└──────────────────────┴──────────────┴──────────────────────────┘
//
// Length counts every byte after the length field itself, so a finalized
// buffer b always satisfies Length == len(b) - 4.
//
// # Fields
//
//   - int32: 4 bytes, big-endian, two's complement
//   - int16: 2 bytes, big-endian, two's complement
//   - boolean: 1 byte, zero is false and anything else is true
//   - string: uint16 big-endian byte length followed by UTF-8 bytes
//
// String lengths are read as unsigned. Peers that only ever send strings
// shorter than 32768 bytes see no difference; longer strings decode to their
// real length instead of a negative one.
//
// # Messages
//
//   - OpcodeEntityVisualState (374): identity, category, state code
//   - OpcodeUserFigure (1640): identity, figure (inbound)
//   - OpcodeUpdateFigure (2730): figure, gender (outbound)
//
// # Errors
//
// Reads never panic. Running past the end of a buffer returns a
// *ShortBufferError that matches ErrShortBuffer and io.ErrUnexpectedEOF,
// because truncated frames are ordinary input from an untrusted peer.
package protocol
