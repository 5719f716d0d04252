// Package tap intercepts inbound messages on a message-oriented connection.
//
// A Tap is composed around a connection when the connection is created.
// Install wraps the connection in a *Transport whose ReadMessage hands each
// observed message to a single Observer before returning the original bytes
// to the caller:
//
//	t := tap.New(dispatcher, tap.WithLogger(logger))
//	transport := t.Install(upstream) // upstream is a *websocket.Conn
//
//	for {
//	    mt, data, err := transport.ReadMessage() // observer already ran
//	    ...
//	}
//
// Only binary messages are observed by default; text and control messages
// pass through untouched. The observer receives a private copy of the data,
// so nothing it does can change what the caller reads. A panicking observer
// is recovered and logged and the read still succeeds.
//
// Installing the same connection twice returns the existing Transport, so
// the observer never runs twice for one message.
//
// Writes through a Transport are serialized, which makes Send safe to call
// from any goroutine while another goroutine pumps WriteMessage.
package tap
