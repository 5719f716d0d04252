package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/wiretap/pkg/protocol"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  [][]byte
	err   error
	calls int
}

func (f *fakeSender) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, frame)
	return nil
}

func (f *fakeSender) ID() string { return "fake" }

func newTestState() *State {
	return New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestCaptureOnce(t *testing.T) {
	s := newTestState()
	if s.Initialized() || s.Transport() != nil {
		t.Fatal("new state is initialized")
	}
	if s.Capture(nil) {
		t.Error("Capture(nil) reported a capture")
	}

	first, second := &fakeSender{}, &fakeSender{}
	if !s.Capture(first) {
		t.Fatal("first Capture() = false")
	}
	if s.Capture(second) {
		t.Error("second Capture() = true")
	}
	if s.Transport() != first || !s.Initialized() {
		t.Error("captured transport was replaced")
	}
}

func TestApplyStateWithoutTransport(t *testing.T) {
	s := newTestState()
	err := s.ApplyState(context.Background(), "hr-100.hd-180")
	if !errors.Is(err, ErrTransportUnavailable) {
		t.Fatalf("ApplyState() error = %v, want ErrTransportUnavailable", err)
	}
	if s.StateCode() != "" {
		t.Errorf("StateCode() = %q after failed apply", s.StateCode())
	}
	if err := s.UpdateFigure(context.Background(), "hr-100", "M"); !errors.Is(err, ErrTransportUnavailable) {
		t.Errorf("UpdateFigure() error = %v, want ErrTransportUnavailable", err)
	}
}

func TestApplyStateSendsFrame(t *testing.T) {
	s := newTestState()
	sender := &fakeSender{}
	s.Capture(sender)
	s.update(map[string]any{FieldIdentity: int32(42), FieldCategory: "M", FieldStateCode: "hd-1"})

	if err := s.ApplyState(context.Background(), "hr-100.hd-180"); err != nil {
		t.Fatalf("ApplyState() error = %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d frames, want 1", len(sender.sent))
	}
	msg, err := protocol.DecodeEntityVisualState(sender.sent[0])
	if err != nil {
		t.Fatalf("sent frame does not decode: %v", err)
	}
	want := protocol.EntityVisualState{Identity: 42, Category: "M", StateCode: "hr-100.hd-180"}
	if *msg != want {
		t.Errorf("sent %+v, want %+v", msg, want)
	}
	if s.StateCode() != "hr-100.hd-180" {
		t.Errorf("StateCode() = %q, want applied code", s.StateCode())
	}
}

func TestApplyStateUnknownIdentity(t *testing.T) {
	s := newTestState()
	sender := &fakeSender{}
	s.Capture(sender)

	if err := s.ApplyState(context.Background(), "ch-1"); err != nil {
		t.Fatalf("ApplyState() error = %v", err)
	}
	msg, err := protocol.DecodeEntityVisualState(sender.sent[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Identity != 0 || msg.Category != "" {
		t.Errorf("sent %+v, want zero identity and empty category", msg)
	}
}

func TestApplyStateErrors(t *testing.T) {
	s := newTestState()
	sender := &fakeSender{err: errors.New("broken pipe")}
	s.Capture(sender)

	if err := s.ApplyState(context.Background(), ""); !errors.Is(err, ErrEmptyStateCode) {
		t.Errorf("ApplyState(\"\") error = %v, want ErrEmptyStateCode", err)
	}
	if sender.calls != 0 {
		t.Errorf("empty state code caused %d sends", sender.calls)
	}

	err := s.ApplyState(context.Background(), "hd-1")
	if err == nil || errors.Is(err, ErrTransportUnavailable) {
		t.Fatalf("ApplyState() error = %v, want send failure", err)
	}
	if s.StateCode() != "" {
		t.Errorf("StateCode() = %q after failed send", s.StateCode())
	}
}

func TestUpdateFigure(t *testing.T) {
	s := newTestState()
	sender := &fakeSender{}
	s.Capture(sender)

	if err := s.UpdateFigure(context.Background(), "hr-100", ""); err != nil {
		t.Fatalf("UpdateFigure() error = %v", err)
	}
	frame, err := protocol.DecodeFrame(sender.sent[0])
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}
	if frame.Opcode != protocol.OpcodeUpdateFigure {
		t.Errorf("opcode = %v, want %v", frame.Opcode, protocol.OpcodeUpdateFigure)
	}
	m, err := protocol.DecodeUpdateFigureFrom(frame.Reader())
	if err != nil || m.Figure != "hr-100" || m.Gender != "" {
		t.Errorf("DecodeUpdateFigureFrom() = %+v, %v", m, err)
	}
	if s.StateCode() != "hr-100" {
		t.Errorf("StateCode() = %q", s.StateCode())
	}
}

func TestCurrentStateImmediate(t *testing.T) {
	s := newTestState()
	s.update(map[string]any{FieldStateCode: "hd-180"})

	code, err := s.CurrentState(context.Background(), time.Millisecond)
	if err != nil || code != "hd-180" {
		t.Errorf("CurrentState() = %q, %v", code, err)
	}
}

func TestCurrentStateTimeout(t *testing.T) {
	s := newTestState()
	start := time.Now()
	_, err := s.CurrentState(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, ErrStateUnavailable) {
		t.Fatalf("CurrentState() error = %v, want ErrStateUnavailable", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("CurrentState() returned before the timeout")
	}
}

func TestCurrentStateCanceled(t *testing.T) {
	s := newTestState()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CurrentState(ctx, time.Minute)
	if !errors.Is(err, ErrStateUnavailable) || !errors.Is(err, context.Canceled) {
		t.Errorf("CurrentState() error = %v, want ErrStateUnavailable wrapping context.Canceled", err)
	}
}

func TestCurrentStateNotified(t *testing.T) {
	s := newTestState()
	done := make(chan struct{})
	var code string
	var err error
	go func() {
		defer close(done)
		code, err = s.CurrentState(context.Background(), 5*time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	d := NewDispatcher(s)
	frame, _ := protocol.EncodeEntityVisualState(&protocol.EntityVisualState{Identity: 1, Category: "F", StateCode: "hr-5"})
	d.Dispatch(frame)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("CurrentState() was not notified")
	}
	if err != nil || code != "hr-5" {
		t.Errorf("CurrentState() = %q, %v", code, err)
	}
}
