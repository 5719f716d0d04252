package tap

// Message is one observed inbound message.
type Message struct {
	// Type is the websocket message type (websocket.BinaryMessage, ...).
	Type int

	// Data is a copy of the message bytes owned by the observer.
	Data []byte

	// Transport is the transport the message arrived on. Observers use it
	// to capture a send handle.
	Transport *Transport

	// Seq numbers observed messages per transport, starting at 1.
	Seq uint64
}

// Observer receives observed messages. Observe runs synchronously on the
// reading goroutine, in delivery order.
type Observer interface {
	Observe(msg Message)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(msg Message)

// Observe calls f(msg).
func (f ObserverFunc) Observe(msg Message) {
	f(msg)
}

// Chain fans one registration out to several observers, called in order.
// Nil entries are skipped. A Transport recovers panics per entry.
type Chain []Observer

// Observe implements Observer.
func (c Chain) Observe(msg Message) {
	for _, o := range c {
		if o != nil {
			o.Observe(msg)
		}
	}
}

// OutboundHook sees every outbound message before it is written and
// returns the message to write. Returning the arguments unchanged makes the
// hook a pure observer.
type OutboundHook func(messageType int, data []byte) (int, []byte)
