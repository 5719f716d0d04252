package tap

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrClosed is returned by writes on a closed Transport.
var ErrClosed = errors.New("tap: transport closed")

// Stats is a snapshot of per-transport counters.
type Stats struct {
	MessagesIn     uint64 `json:"messagesIn"`
	BytesIn        uint64 `json:"bytesIn"`
	Observed       uint64 `json:"observed"`
	MessagesOut    uint64 `json:"messagesOut"`
	BytesOut       uint64 `json:"bytesOut"`
	ObserverPanics uint64 `json:"observerPanics"`
}

// Transport is a tapped connection. It satisfies Conn, so it can be used
// anywhere the wrapped connection was.
type Transport struct {
	id    uuid.UUID
	conn  Conn
	tap   *Tap
	keyed bool

	seq            atomic.Uint64
	messagesIn     atomic.Uint64
	bytesIn        atomic.Uint64
	messagesOut    atomic.Uint64
	bytesOut       atomic.Uint64
	observerPanics atomic.Uint64

	writeMu  sync.Mutex
	outbound OutboundHook
	closed   bool

	closeOnce sync.Once
	closeErr  error
}

func newTransport(t *Tap, conn Conn) *Transport {
	return &Transport{
		id:       uuid.New(),
		conn:     conn,
		tap:      t,
		outbound: t.outbound,
	}
}

// ID returns the transport handle.
func (tr *Transport) ID() string {
	return tr.id.String()
}

// Unwrap returns the wrapped connection.
func (tr *Transport) Unwrap() Conn {
	return tr.conn
}

// ReadMessage reads the next message from the wrapped connection. Observed
// message types are handed to the observer first; the returned type and
// bytes are always exactly what the connection produced.
func (tr *Transport) ReadMessage() (int, []byte, error) {
	mt, data, err := tr.conn.ReadMessage()
	if err != nil {
		return mt, data, err
	}

	tr.messagesIn.Add(1)
	tr.bytesIn.Add(uint64(len(data)))

	if tr.tap.observes(mt) {
		tr.notify(mt, data)
	}
	return mt, data, nil
}

// notify runs the observer on a copy of data.
func (tr *Transport) notify(mt int, data []byte) {
	tr.observe(tr.tap.observer, Message{
		Type:      mt,
		Data:      append([]byte(nil), data...),
		Transport: tr,
		Seq:       tr.seq.Add(1),
	})
}

// observe delivers msg to o and contains any panic. Chain entries are
// delivered one by one so a panicking entry does not skip the rest.
func (tr *Transport) observe(o Observer, msg Message) {
	if chain, ok := o.(Chain); ok {
		for _, entry := range chain {
			if entry != nil {
				tr.observe(entry, msg)
			}
		}
		return
	}

	defer func() {
		if r := recover(); r != nil {
			tr.observerPanics.Add(1)
			tr.tap.metrics.ObserverPanic()
			tr.tap.logger.Error("observer panic",
				"transport", tr.ID(),
				"seq", msg.Seq,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()

	o.Observe(msg)
}

// WriteMessage writes one message through the outbound hook. Concurrent
// callers are serialized.
func (tr *Transport) WriteMessage(messageType int, data []byte) error {
	tr.writeMu.Lock()
	defer tr.writeMu.Unlock()

	if tr.closed {
		return ErrClosed
	}
	if tr.outbound != nil {
		messageType, data = tr.outbound(messageType, data)
	}
	if err := tr.conn.WriteMessage(messageType, data); err != nil {
		return err
	}
	tr.messagesOut.Add(1)
	tr.bytesOut.Add(uint64(len(data)))
	return nil
}

// Send writes one binary frame.
func (tr *Transport) Send(frame []byte) error {
	return tr.WriteMessage(websocket.BinaryMessage, frame)
}

// SetOutbound replaces the outbound hook. A nil hook disables it.
func (tr *Transport) SetOutbound(hook OutboundHook) {
	tr.writeMu.Lock()
	tr.outbound = hook
	tr.writeMu.Unlock()
}

// Stats returns a snapshot of the transport counters.
func (tr *Transport) Stats() Stats {
	return Stats{
		MessagesIn:     tr.messagesIn.Load(),
		BytesIn:        tr.bytesIn.Load(),
		Observed:       tr.seq.Load(),
		MessagesOut:    tr.messagesOut.Load(),
		BytesOut:       tr.bytesOut.Load(),
		ObserverPanics: tr.observerPanics.Load(),
	}
}

// Close closes the wrapped connection and removes the transport from its
// tap. Subsequent calls return the first result.
func (tr *Transport) Close() error {
	tr.closeOnce.Do(func() {
		// Closing the connection first unblocks a writer stuck in
		// conn.WriteMessage while holding writeMu.
		tr.closeErr = tr.conn.Close()

		tr.writeMu.Lock()
		tr.closed = true
		tr.writeMu.Unlock()

		tr.tap.release(tr)
	})
	return tr.closeErr
}
