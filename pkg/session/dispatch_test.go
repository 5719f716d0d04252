package session

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vango-dev/wiretap/pkg/metrics"
	"github.com/vango-dev/wiretap/pkg/protocol"
	"github.com/vango-dev/wiretap/pkg/tap"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestDispatchEmptyStateCodeGuard(t *testing.T) {
	s := newTestState()
	s.update(map[string]any{FieldIdentity: int32(7), FieldCategory: "F", FieldStateCode: "hd-1"})
	d := NewDispatcher(s, WithDispatchLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	// Declared length 9, real remainder 11: the header length is not
	// validated.
	d.Dispatch([]byte{
		0x00, 0x00, 0x00, 0x09,
		0x01, 0x76,
		0x00, 0x00, 0x00, 0x2A,
		0x00, 0x01, 'A',
		0x00, 0x00,
	})

	fields := s.Fields()
	if fields[FieldStateCode] != "hd-1" || fields[FieldIdentity] != int32(7) || fields[FieldCategory] != "F" {
		t.Errorf("fields changed by empty state code: %v", fields)
	}
}

func TestDispatchUpdatesState(t *testing.T) {
	s := newTestState()
	d := NewDispatcher(s)

	frame, _ := protocol.EncodeEntityVisualState(&protocol.EntityVisualState{Identity: 42, Category: "A", StateCode: "hr-100"})
	d.Dispatch(frame)

	want := map[string]any{FieldIdentity: int32(42), FieldCategory: "A", FieldStateCode: "hr-100"}
	got := s.Fields()
	for k, v := range want {
		if got[k] != v {
			t.Errorf("field %s = %v, want %v", k, got[k], v)
		}
	}

	frame, _ = protocol.EncodeUserFigure(&protocol.UserFigure{Identity: 43, Figure: "ch-3"})
	d.Dispatch(frame)
	if s.StateCode() != "ch-3" {
		t.Errorf("StateCode() = %q after user figure", s.StateCode())
	}
	if v, _ := s.Field(FieldCategory); v != "A" {
		t.Errorf("category = %v, user figure must not touch it", v)
	}

	frame, _ = protocol.EncodeUserFigure(&protocol.UserFigure{Identity: 44})
	d.Dispatch(frame)
	if v, _ := s.Field(FieldIdentity); v != int32(43) {
		t.Errorf("identity = %v after empty user figure, want 43", v)
	}
}

func TestDispatchMalformedAndUnknown(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg))
	s := newTestState()
	d := NewDispatcher(s,
		WithDispatchMetrics(m),
		WithDispatchLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	d.Dispatch([]byte{0, 0})                                  // header cut
	d.Dispatch([]byte{0, 0, 0, 8, 0x01, 0x76, 0, 0, 0, 1, 0}) // string prefix cut
	unknown, _ := protocol.EncodeFields(999, []protocol.Field{protocol.Int32Field(1)})
	d.Dispatch(unknown)

	if len(s.Fields()) != 0 {
		t.Errorf("state mutated by bad frames: %v", s.Fields())
	}
	if got := counterValue(t, reg, "wiretap_decode_errors_total"); got != 2 {
		t.Errorf("decode_errors_total = %v, want 2", got)
	}
	if got := counterValue(t, reg, "wiretap_unknown_opcodes_total"); got != 1 {
		t.Errorf("unknown_opcodes_total = %v, want 1", got)
	}
}

func TestWithHandler(t *testing.T) {
	s := newTestState()
	called := false
	d := NewDispatcher(s, WithHandler(999, func(s *State, r *protocol.Reader) error {
		v, err := r.ReadInt32()
		called = err == nil && v == 5
		return err
	}))
	frame, _ := protocol.EncodeFields(999, []protocol.Field{protocol.Int32Field(5)})
	d.Dispatch(frame)
	if !called {
		t.Error("custom handler was not called with the payload")
	}
}

type scriptedConn struct {
	frames [][]byte
	sent   [][]byte
}

func (c *scriptedConn) ReadMessage() (int, []byte, error) {
	if len(c.frames) == 0 {
		return -1, nil, io.EOF
	}
	f := c.frames[0]
	c.frames = c.frames[1:]
	return websocket.BinaryMessage, f, nil
}

func (c *scriptedConn) WriteMessage(_ int, data []byte) error {
	c.sent = append(c.sent, data)
	return nil
}

func (c *scriptedConn) Close() error { return nil }

func TestObserveThroughTap(t *testing.T) {
	s := newTestState()
	frame, _ := protocol.EncodeEntityVisualState(&protocol.EntityVisualState{Identity: 1, Category: "M", StateCode: "hd-9"})
	conn := &scriptedConn{frames: [][]byte{frame}}

	tr := tap.New(NewDispatcher(s)).Install(conn)
	if _, _, err := tr.ReadMessage(); err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	if s.Transport() == nil || s.Transport().ID() != tr.ID() {
		t.Fatal("transport was not captured from the first message")
	}
	if s.StateCode() != "hd-9" {
		t.Fatalf("StateCode() = %q", s.StateCode())
	}

	if err := s.ApplyState(context.Background(), "hd-10"); err != nil {
		t.Fatalf("ApplyState() error = %v", err)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("conn received %d frames, want 1", len(conn.sent))
	}
}
