package session

import (
	"errors"
	"log/slog"

	"github.com/vango-dev/wiretap/pkg/metrics"
	"github.com/vango-dev/wiretap/pkg/protocol"
	"github.com/vango-dev/wiretap/pkg/tap"
)

// Handler decodes the payload of one opcode and updates the state. r is
// positioned after the frame header.
type Handler func(s *State, r *protocol.Reader) error

// Dispatcher routes observed frames to per-opcode handlers.
type Dispatcher struct {
	state    *State
	handlers map[protocol.Opcode]Handler
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHandler adds or replaces the handler for op.
func WithHandler(op protocol.Opcode, h Handler) DispatcherOption {
	return func(d *Dispatcher) {
		d.handlers[op] = h
	}
}

// WithDispatchLogger sets the dispatcher logger.
func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDispatchMetrics records frame and decode counts on c.
func WithDispatchMetrics(c *metrics.Collector) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = c
	}
}

// NewDispatcher creates a dispatcher feeding state, with handlers for
// entity visual state and user figure frames.
func NewDispatcher(state *State, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		state: state,
		handlers: map[protocol.Opcode]Handler{
			protocol.OpcodeEntityVisualState: handleEntityVisualState,
			protocol.OpcodeUserFigure:        handleUserFigure,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dispatch")
	return d
}

// Observe implements tap.Observer.
func (d *Dispatcher) Observe(msg tap.Message) {
	if msg.Transport != nil {
		d.state.Capture(msg.Transport)
	}
	d.Dispatch(msg.Data)
}

// Dispatch decodes one frame and applies it to the state. Errors are
// logged and counted, never returned.
func (d *Dispatcher) Dispatch(frame []byte) {
	r := protocol.NewReader(frame)
	// The declared length is not checked against the buffer.
	_, op, err := r.ReadHeader()
	if err != nil {
		d.metrics.DecodeError(decodeErrorKind(err))
		d.logger.Warn("malformed frame header", "bytes", len(frame), "error", err)
		return
	}

	h, ok := d.handlers[op]
	if !ok {
		d.metrics.UnknownOpcode()
		return
	}
	d.metrics.FrameObserved(op.String())

	if err := h(d.state, r); err != nil {
		d.metrics.DecodeError(decodeErrorKind(err))
		d.logger.Warn("malformed frame", "opcode", op, "bytes", len(frame), "error", err)
	}
}

func decodeErrorKind(err error) string {
	switch {
	case errors.Is(err, protocol.ErrShortBuffer):
		return "short_buffer"
	default:
		return "other"
	}
}

func handleEntityVisualState(s *State, r *protocol.Reader) error {
	m, err := protocol.DecodeEntityVisualStateFrom(r)
	if err != nil {
		return err
	}
	if m.StateCode == "" {
		return nil
	}
	s.update(map[string]any{
		FieldIdentity:  m.Identity,
		FieldCategory:  m.Category,
		FieldStateCode: m.StateCode,
	})
	return nil
}

func handleUserFigure(s *State, r *protocol.Reader) error {
	m, err := protocol.DecodeUserFigureFrom(r)
	if err != nil {
		return err
	}
	if m.Figure == "" {
		return nil
	}
	s.update(map[string]any{
		FieldIdentity:  m.Identity,
		FieldStateCode: m.Figure,
	})
	return nil
}
