package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/wiretap/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Names of the last-known fields.
const (
	FieldIdentity  = "identity"
	FieldCategory  = "category"
	FieldStateCode = "stateCode"
)

// DefaultWaitTimeout bounds CurrentState when the caller passes no timeout.
const DefaultWaitTimeout = 2 * time.Second

const tracerName = "github.com/vango-dev/wiretap/pkg/session"

var (
	// ErrTransportUnavailable is returned by outbound operations before a
	// transport has been captured. Nothing is sent.
	ErrTransportUnavailable = errors.New("session: transport unavailable")

	// ErrStateUnavailable is returned by CurrentState when no state code
	// became known in time.
	ErrStateUnavailable = errors.New("session: state unavailable")

	// ErrEmptyStateCode is returned by ApplyState for an empty state code.
	ErrEmptyStateCode = errors.New("session: empty state code")
)

// Sender is the send side of a captured transport. *tap.Transport
// satisfies it.
type Sender interface {
	Send(frame []byte) error
	ID() string
}

// State is the per-connection session state. It is safe for concurrent
// use.
type State struct {
	mu          sync.Mutex
	transport   Sender
	initialized bool
	fields      map[string]any
	ready       chan struct{}
	readyClosed bool

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// Option configures a State.
type Option func(*State)

// WithLogger sets the state logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *State) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records sends and waits on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *State) {
		s.metrics = c
	}
}

// WithTracer overrides the tracer. The default comes from the global
// OpenTelemetry provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *State) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// New creates an uninitialized State.
func New(opts ...Option) *State {
	s := &State{
		fields: make(map[string]any, 3),
		ready:  make(chan struct{}),
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "session")
	return s
}

// Capture records t as the send handle if none has been captured yet and
// reports whether this call captured it. The state moves to initialized
// and never goes back.
func (s *State) Capture(t Sender) bool {
	if t == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return false
	}
	s.transport = t
	s.initialized = true
	s.logger.Info("transport captured", "transport", t.ID())
	return true
}

// Initialized reports whether a transport has been captured.
func (s *State) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Transport returns the captured send handle, or nil.
func (s *State) Transport() Sender {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport
}

// Field returns one last-known value.
func (s *State) Field(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.fields[name]
	return v, ok
}

// Fields returns a copy of every last-known value.
func (s *State) Fields() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.fields))
	for k, v := range s.fields {
		out[k] = v
	}
	return out
}

// StateCode returns the last known state code, or "".
func (s *State) StateCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateCodeLocked()
}

func (s *State) stateCodeLocked() string {
	code, _ := s.fields[FieldStateCode].(string)
	return code
}

// update merges values and publishes a state code if one is present.
// Callers have already rejected empty state codes.
func (s *State) update(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.fields[k] = v
	}
	if !s.readyClosed && s.stateCodeLocked() != "" {
		close(s.ready)
		s.readyClosed = true
	}
}

// CurrentState returns the last known state code. When none is known yet
// it waits up to timeout (DefaultWaitTimeout when timeout <= 0) for the
// decode path to publish one. It returns ErrStateUnavailable on timeout;
// on cancellation the error also wraps ctx.Err().
func (s *State) CurrentState(ctx context.Context, timeout time.Duration) (string, error) {
	ctx, span := s.tracer.Start(ctx, "session.CurrentState")
	defer span.End()

	start := time.Now()

	s.mu.Lock()
	code := s.stateCodeLocked()
	ready := s.ready
	s.mu.Unlock()

	if code != "" {
		s.metrics.ObserveStateWait(metrics.WaitImmediate, 0)
		span.SetAttributes(attribute.String("wiretap.wait_result", metrics.WaitImmediate))
		return code, nil
	}

	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result string
	var err error
	select {
	case <-ready:
		result = metrics.WaitNotified
		code = s.StateCode()
	case <-timer.C:
		result = metrics.WaitTimeout
		err = ErrStateUnavailable
	case <-ctx.Done():
		result = metrics.WaitCanceled
		err = fmt.Errorf("%w: %w", ErrStateUnavailable, ctx.Err())
	}

	s.metrics.ObserveStateWait(result, time.Since(start).Seconds())
	span.SetAttributes(attribute.String("wiretap.wait_result", result))
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return code, nil
}
