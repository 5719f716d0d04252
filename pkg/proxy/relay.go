package proxy

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/wiretap/internal/errors"
	"github.com/vango-dev/wiretap/pkg/session"
	"github.com/vango-dev/wiretap/pkg/tap"
)

// Headers the websocket dialer sets itself.
var reservedHeaders = map[string]bool{
	"Upgrade":                  true,
	"Connection":               true,
	"Sec-Websocket-Key":        true,
	"Sec-Websocket-Version":    true,
	"Sec-Websocket-Extensions": true,
	"Host":                     true,
}

// Relay is one client connection bridged to the upstream server. Each
// relay owns a fresh session.State fed by a tap on the upstream side.
type Relay struct {
	state    *session.State
	tap      *tap.Tap
	logger   *slog.Logger
	started  time.Time
	timeout  time.Duration
	maxSize  int64

	mu       sync.Mutex
	client   *websocket.Conn
	upstream *tap.Transport

	closeOnce sync.Once
	done      chan struct{}
}

func (s *Server) newRelay() *Relay {
	state := session.New(
		session.WithLogger(s.base),
		session.WithMetrics(s.metrics),
	)
	dispatcher := session.NewDispatcher(state,
		session.WithDispatchLogger(s.base),
		session.WithDispatchMetrics(s.metrics),
	)
	return &Relay{
		state: state,
		tap: tap.New(dispatcher,
			tap.WithLogger(s.base),
			tap.WithMetrics(s.metrics),
		),
		logger:  s.base.With("component", "relay"),
		timeout: s.config.WriteTimeout,
		maxSize: s.config.MaxMessageSize,
		done:    make(chan struct{}),
	}
}

// State returns the relay's session state.
func (rl *Relay) State() *session.State {
	return rl.state
}

// Upstream returns the tapped upstream transport. It is nil until the
// relay starts.
func (rl *Relay) Upstream() *tap.Transport {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.upstream
}

// Done is closed when the relay stops.
func (rl *Relay) Done() <-chan struct{} {
	return rl.done
}

// Close stops both pumps and closes both websockets.
func (rl *Relay) Close() {
	rl.closeOnce.Do(func() {
		rl.mu.Lock()
		client, upstream := rl.client, rl.upstream
		close(rl.done)
		rl.mu.Unlock()

		if client != nil {
			client.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			client.Close()
		}
		if upstream != nil {
			upstream.Close()
		}
	})
}

// run pumps frames in both directions until either side fails.
func (rl *Relay) run(client, upstream *websocket.Conn) {
	if rl.maxSize > 0 {
		client.SetReadLimit(rl.maxSize)
		upstream.SetReadLimit(rl.maxSize)
	}
	rl.mu.Lock()
	select {
	case <-rl.done:
		rl.mu.Unlock()
		client.Close()
		upstream.Close()
		return
	default:
	}
	rl.client = client
	rl.upstream = rl.tap.Install(upstream)
	rl.mu.Unlock()

	rl.started = time.Now()
	rl.logger = rl.logger.With("transport", rl.upstream.ID())
	rl.logger.Info("relay started", "client", client.RemoteAddr().String())

	errc := make(chan error, 2)
	go func() { errc <- rl.pumpUpstream() }()
	go func() { errc <- rl.pumpClient() }()

	err := <-errc
	rl.Close()
	<-errc

	stats := rl.upstream.Stats()
	attrs := []any{
		"duration", time.Since(rl.started).Round(time.Millisecond),
		"frames_in", stats.MessagesIn,
		"frames_out", stats.MessagesOut,
	}
	if err != nil && !isNormalClose(err) {
		rl.logger.Warn("relay stopped", append(attrs, "error", err)...)
		return
	}
	rl.logger.Info("relay stopped", attrs...)
}

// pumpUpstream forwards upstream frames to the client. Reading through the
// transport runs the tap first.
func (rl *Relay) pumpUpstream() error {
	for {
		mt, data, err := rl.upstream.ReadMessage()
		if err != nil {
			return fmt.Errorf("upstream read: %w", err)
		}
		rl.client.SetWriteDeadline(time.Now().Add(rl.timeout))
		if err := rl.client.WriteMessage(mt, data); err != nil {
			return fmt.Errorf("client write: %w", err)
		}
	}
}

// pumpClient forwards client frames upstream.
func (rl *Relay) pumpClient() error {
	for {
		mt, data, err := rl.client.ReadMessage()
		if err != nil {
			return fmt.Errorf("client read: %w", err)
		}
		if err := rl.upstream.WriteMessage(mt, data); err != nil {
			return fmt.Errorf("upstream write: %w", err)
		}
	}
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}

// claim makes rl the active relay. It fails when another relay runs.
func (s *Server) claim(rl *Relay) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return false
	}
	s.active = rl
	return true
}

// release clears the active relay. The relay's state stays readable.
func (s *Server) release(rl *Relay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == rl {
		s.active = nil
	}
}

func (s *Server) upstreamHeader(r *http.Request) http.Header {
	h := http.Header{}
	for _, name := range s.config.ForwardHeaders {
		name = http.CanonicalHeaderKey(strings.TrimSpace(name))
		if name == "" || reservedHeaders[name] {
			continue
		}
		for _, v := range r.Header.Values(name) {
			h.Add(name, v)
		}
	}
	if s.config.Origin != "" {
		h.Set("Origin", s.config.Origin)
	}
	return h
}

// handleWebSocket dials upstream, upgrades the client and relays until
// either side closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	rl := s.newRelay()
	if !s.claim(rl) {
		s.writeError(w, r, errors.New("W004"), "W004")
		return
	}
	defer s.release(rl)

	upstream, resp, err := s.dialer.DialContext(r.Context(), s.config.Upstream, s.upstreamHeader(r))
	if err != nil {
		we := errors.New("W005").Wrap(err)
		if resp != nil {
			we.WithDetail(fmt.Sprintf("Upstream %s answered %s.", s.config.Upstream, resp.Status))
		}
		s.writeError(w, r, we, "W005")
		return
	}

	client, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		upstream.Close()
		s.logger.Warn("client upgrade failed", "error", err)
		return
	}

	s.mu.Lock()
	s.state = rl.state
	s.mu.Unlock()

	rl.run(client, upstream)
}
