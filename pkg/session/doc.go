// Package session tracks what wiretap has learned about one relayed
// connection and injects outbound frames on it.
//
// A State is created per connection and passed explicitly to the
// components that need it: the Dispatcher that feeds it from the tap, the
// control API and the CLI. It holds three things:
//
//   - the send handle of the transport, captured from the first observed
//     message and never replaced
//   - the last known identity, category and state code
//   - a notification that fires once a state code is known
//
// # Inbound
//
// The Dispatcher is a tap.Observer. For each observed frame it reads the
// header, looks the opcode up in its handler table and lets the handler
// update the State. Frames with unknown opcodes are ignored and malformed
// frames are logged and counted; neither ever reaches the caller of
// ReadMessage.
//
// A state code update only happens when the decoded code is non-empty, so
// an entity announcing an empty figure never erases a known one.
//
// # Outbound
//
//	if err := state.ApplyState(ctx, "hr-100.hd-180"); errors.Is(err, session.ErrTransportUnavailable) {
//	    // nothing captured yet; nothing was sent
//	}
//
// # Waiting for state
//
// CurrentState returns the known state code immediately or blocks until the
// decode path publishes one, the timeout expires or ctx is canceled.
package session
