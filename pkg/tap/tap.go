package tap

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/wiretap/pkg/metrics"
)

// Conn is the message-oriented connection a Tap wraps. *websocket.Conn
// satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Tap installs one observer on any number of connections.
type Tap struct {
	observer Observer
	logger   *slog.Logger
	metrics  *metrics.Collector
	kinds    map[int]bool
	outbound OutboundHook

	mu        sync.Mutex
	installed map[Conn]*Transport
}

// Option configures a Tap.
type Option func(*Tap)

// WithLogger sets the logger used for observer failures.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tap) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMetrics records transport and panic counts on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(t *Tap) {
		t.metrics = c
	}
}

// WithMessageTypes replaces the observed message types. The default is
// websocket.BinaryMessage only.
func WithMessageTypes(types ...int) Option {
	return func(t *Tap) {
		t.kinds = make(map[int]bool, len(types))
		for _, mt := range types {
			t.kinds[mt] = true
		}
	}
}

// WithOutbound sets the default outbound hook for new transports.
func WithOutbound(hook OutboundHook) Option {
	return func(t *Tap) {
		t.outbound = hook
	}
}

// New creates a tap that reports to observer. A nil observer observes
// nothing.
func New(observer Observer, opts ...Option) *Tap {
	t := &Tap{
		observer:  observer,
		logger:    slog.Default(),
		kinds:     map[int]bool{websocket.BinaryMessage: true},
		installed: make(map[Conn]*Transport),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "tap")
	return t
}

// Install wraps conn so that inbound messages reach the observer. It is
// idempotent: a connection already installed on this tap, or a Transport
// created by it, is returned as is. Install(nil) returns nil.
func (t *Tap) Install(conn Conn) *Transport {
	if conn == nil {
		return nil
	}
	if tr, ok := conn.(*Transport); ok && tr.tap == t {
		return tr
	}

	// Connections of non-comparable types cannot be map keys; they are
	// wrapped every time.
	keyable := reflect.TypeOf(conn).Comparable()

	t.mu.Lock()
	defer t.mu.Unlock()

	if keyable {
		if tr, ok := t.installed[conn]; ok {
			return tr
		}
	}

	tr := newTransport(t, conn)
	if keyable {
		t.installed[conn] = tr
		tr.keyed = true
	}
	t.metrics.TransportOpened()
	t.logger.Debug("transport installed", "transport", tr.ID())
	return tr
}

// Installed returns the number of live transports with comparable
// connections.
func (t *Tap) Installed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.installed)
}

func (t *Tap) release(tr *Transport) {
	if tr.keyed {
		t.mu.Lock()
		if cur, ok := t.installed[tr.conn]; ok && cur == tr {
			delete(t.installed, tr.conn)
		}
		t.mu.Unlock()
	}
	t.metrics.TransportClosed()
}

func (t *Tap) observes(messageType int) bool {
	return t.observer != nil && t.kinds[messageType]
}
