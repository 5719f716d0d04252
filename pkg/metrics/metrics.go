// Package metrics exposes wiretap's Prometheus instruments.
//
// A Collector is created once per process and shared by the tap, the
// session dispatcher and the relay. Every method is safe to call on a nil
// *Collector, so components built without metrics need no special casing.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collector.
type Config struct {
	// Namespace is the metrics namespace (default: "wiretap").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// WaitBuckets are the histogram buckets for state waits.
	// Default: 5ms to 5s.
	WaitBuckets []float64

	// RequestBuckets are the histogram buckets for control API requests.
	// Default: prometheus.DefBuckets.
	RequestBuckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithWaitBuckets sets the state wait histogram buckets.
func WithWaitBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.WaitBuckets = buckets
	}
}

// WithRequestBuckets sets the control API duration histogram buckets.
func WithRequestBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.RequestBuckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace:   "wiretap",
		WaitBuckets:    []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2, 5},
		RequestBuckets: prometheus.DefBuckets,
		Registry:       prometheus.DefaultRegisterer,
	}
}

// Wait results recorded by ObserveStateWait.
const (
	WaitImmediate = "immediate"
	WaitNotified  = "notified"
	WaitTimeout   = "timeout"
	WaitCanceled  = "canceled"
)

// Collector holds the wiretap instruments.
type Collector struct {
	framesObserved   *prometheus.CounterVec
	decodeErrors     *prometheus.CounterVec
	unknownOpcodes   prometheus.Counter
	outboundSends    *prometheus.CounterVec
	stateWait        *prometheus.HistogramVec
	activeTransports prometheus.Gauge
	observerPanics   prometheus.Counter
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// New creates a collector and registers its instruments.
//
// Metrics collected:
//   - wiretap_frames_observed_total: Counter of tapped inbound frames by opcode
//   - wiretap_decode_errors_total: Counter of frames that failed to decode, by kind
//   - wiretap_unknown_opcodes_total: Counter of frames with no handler
//   - wiretap_outbound_sends_total: Counter of injected frames by status
//   - wiretap_state_wait_seconds: Histogram of CurrentState waits by result
//   - wiretap_active_transports: Gauge of tapped connections
//   - wiretap_observer_panics_total: Counter of recovered observer panics
//   - wiretap_api_requests_total: Counter of control API requests by route and status
//   - wiretap_api_request_duration_seconds: Histogram of control API latency by route
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(config.Registry)

	return &Collector{
		framesObserved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_observed_total",
			Help:        "Total number of tapped inbound frames",
			ConstLabels: config.ConstLabels,
		}, []string{"opcode"}),

		decodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "decode_errors_total",
			Help:        "Total number of inbound frames that failed to decode",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		unknownOpcodes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "unknown_opcodes_total",
			Help:        "Total number of inbound frames with an unhandled opcode",
			ConstLabels: config.ConstLabels,
		}),

		outboundSends: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "outbound_sends_total",
			Help:        "Total number of injected outbound frames",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		stateWait: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "state_wait_seconds",
			Help:        "Time spent waiting for a known state code",
			ConstLabels: config.ConstLabels,
			Buckets:     config.WaitBuckets,
		}, []string{"result"}),

		activeTransports: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_transports",
			Help:        "Number of tapped connections",
			ConstLabels: config.ConstLabels,
		}),

		observerPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "observer_panics_total",
			Help:        "Total number of recovered observer panics",
			ConstLabels: config.ConstLabels,
		}),

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "api_requests_total",
			Help:        "Total number of control API requests",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "api_request_duration_seconds",
			Help:        "Control API request latency",
			ConstLabels: config.ConstLabels,
			Buckets:     config.RequestBuckets,
		}, []string{"route"}),
	}
}

// FrameObserved records one tapped frame.
func (c *Collector) FrameObserved(opcode string) {
	if c != nil {
		c.framesObserved.WithLabelValues(opcode).Inc()
	}
}

// DecodeError records a frame that could not be decoded.
func (c *Collector) DecodeError(kind string) {
	if c != nil {
		c.decodeErrors.WithLabelValues(kind).Inc()
	}
}

// UnknownOpcode records a frame with no handler.
func (c *Collector) UnknownOpcode() {
	if c != nil {
		c.unknownOpcodes.Inc()
	}
}

// OutboundSend records an injected frame. A nil err counts as "ok".
func (c *Collector) OutboundSend(err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.outboundSends.WithLabelValues(status).Inc()
}

// ObserveStateWait records how long a CurrentState call waited.
func (c *Collector) ObserveStateWait(result string, seconds float64) {
	if c != nil {
		c.stateWait.WithLabelValues(result).Observe(seconds)
	}
}

// TransportOpened increments the active transport gauge.
func (c *Collector) TransportOpened() {
	if c != nil {
		c.activeTransports.Inc()
	}
}

// TransportClosed decrements the active transport gauge.
func (c *Collector) TransportClosed() {
	if c != nil {
		c.activeTransports.Dec()
	}
}

// ObserverPanic records a recovered observer panic.
func (c *Collector) ObserverPanic() {
	if c != nil {
		c.observerPanics.Inc()
	}
}

// APIRequest records one control API request. route is the route pattern,
// not the raw path, to keep label cardinality bounded.
func (c *Collector) APIRequest(route string, status int, seconds float64) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(route).Observe(seconds)
}
