package proxy

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/wiretap/pkg/metrics"
	"github.com/vango-dev/wiretap/pkg/session"
	"github.com/vango-dev/wiretap/pkg/store"
)

// Config configures a Server.
type Config struct {
	// Address is the listen address used by Run.
	Address string

	// Upstream is the websocket URL every relay dials.
	Upstream string

	// Origin is sent as the Origin header on the upstream dial.
	Origin string

	// ForwardHeaders are copied from the client request to the upstream dial.
	ForwardHeaders []string

	// MaxMessageSize is the read limit on both websockets (0 = unlimited).
	MaxMessageSize int64

	// WriteTimeout is the write deadline for frames relayed to the client.
	WriteTimeout time.Duration

	// WaitTimeout is the default CurrentState wait for GET /api/state.
	WaitTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown in Run.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with default timeouts.
func DefaultConfig() Config {
	return Config{
		Address:         ":8420",
		MaxMessageSize:  1 << 20,
		WriteTimeout:    10 * time.Second,
		WaitTimeout:     session.DefaultWaitTimeout,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Server is the relay and control API.
type Server struct {
	config   Config
	catalog  *store.Catalog
	metrics  *metrics.Collector
	gatherer prometheus.Gatherer
	base     *slog.Logger
	logger   *slog.Logger
	upgrader websocket.Upgrader
	dialer   *websocket.Dialer

	traceOpts []TraceOption

	mu     sync.Mutex
	active *Relay
	state  *session.State

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.base = logger
		}
	}
}

// WithMetrics sets the collector shared by relays and the gatherer served
// on /metrics. Without a gatherer the route is not mounted.
func WithMetrics(c *metrics.Collector, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = c
		s.gatherer = g
	}
}

// WithTracing configures the spans started for control API requests.
func WithTracing(opts ...TraceOption) Option {
	return func(s *Server) {
		s.traceOpts = append(s.traceOpts, opts...)
	}
}

// WithDialer replaces the upstream dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(s *Server) {
		if d != nil {
			s.dialer = d
		}
	}
}

// WithCheckOrigin sets the client upgrade origin check. The default
// accepts every origin.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

// New creates a Server relaying to config.Upstream. catalog backs the
// records endpoints.
func New(config Config, catalog *store.Catalog, opts ...Option) *Server {
	defaults := DefaultConfig()
	if config.Address == "" {
		config.Address = defaults.Address
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.WaitTimeout <= 0 {
		config.WaitTimeout = defaults.WaitTimeout
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}

	s := &Server{
		config:   config,
		catalog:  catalog,
		base:     slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.base.With("component", "proxy")
	return s
}

// Handler returns the HTTP handler serving the relay and the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", s.health)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(Tracing(s.traceOpts...))
		r.Use(Instrument(s.metrics))

		r.Get("/state", s.getState)
		r.Put("/state", s.putState)
		r.Put("/figure", s.putFigure)

		r.Route("/records", func(r chi.Router) {
			r.Get("/", s.listRecords)
			r.Post("/", s.createRecord)
			r.Post("/capture", s.captureRecord)
			r.Get("/{id}", s.getRecord)
			r.Put("/{id}", s.updateRecord)
			r.Delete("/{id}", s.deleteRecord)
			r.Post("/{id}/apply", s.applyRecord)
		})
	})
	return r
}

// State returns the session state of the active relay, or of the most
// recent one after it closed. It is nil before the first relay.
func (s *Server) State() *session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active returns the running relay, if any.
func (s *Server) Active() *Relay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Run serves until ctx is canceled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address, "upstream", s.config.Upstream)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes the active relay and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if relay := s.Active(); relay != nil {
		relay.Close()
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}
