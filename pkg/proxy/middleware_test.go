package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/wiretap/pkg/metrics"
)

type recordingProvider struct {
	noop.TracerProvider
	mu    sync.Mutex
	spans []*recordingSpan
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return recordingTracer{p: p}
}

func (p *recordingProvider) recorded() []*recordingSpan {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*recordingSpan(nil), p.spans...)
}

type recordingTracer struct {
	noop.Tracer
	p *recordingProvider
}

func (t recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	sp := &recordingSpan{name: name, kind: cfg.SpanKind(), attrs: map[attribute.Key]attribute.Value{}}
	for _, kv := range cfg.Attributes() {
		sp.attrs[kv.Key] = kv.Value
	}
	t.p.mu.Lock()
	t.p.spans = append(t.p.spans, sp)
	t.p.mu.Unlock()
	return trace.ContextWithSpan(ctx, sp), sp
}

type recordingSpan struct {
	noop.Span
	name   string
	kind   trace.SpanKind
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	ended  bool
}

func (s *recordingSpan) SetName(name string) { s.name = name }

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordingSpan) SetStatus(code codes.Code, _ string) { s.status = code }

func (s *recordingSpan) End(...trace.SpanEndOption) { s.ended = true }

func TestTracing(t *testing.T) {
	tp := &recordingProvider{}
	r := chi.NewRouter()
	r.Use(Tracing(
		WithTracerProvider(tp),
		WithTracerName("test"),
		WithTraceFilter(func(r *http.Request) bool { return r.URL.Path != "/skip" }),
	))

	var inHandler trace.Span
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		inHandler = trace.SpanFromContext(r.Context())
		w.WriteHeader(http.StatusBadGateway)
	})
	r.Get("/skip", func(w http.ResponseWriter, r *http.Request) {})

	for _, path := range []string{"/items/42", "/skip"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	spans := tp.recorded()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	sp := spans[0]
	if inHandler != trace.Span(sp) {
		t.Error("handler context does not carry the request span")
	}
	if sp.name != "wiretap GET /items/{id}" {
		t.Errorf("name = %q", sp.name)
	}
	if sp.kind != trace.SpanKindServer {
		t.Errorf("kind = %v", sp.kind)
	}
	if got := sp.attrs["http.route"].AsString(); got != "/items/{id}" {
		t.Errorf("http.route = %q", got)
	}
	if got := sp.attrs["http.target"].AsString(); got != "/items/42" {
		t.Errorf("http.target = %q", got)
	}
	if got := sp.attrs["http.status_code"].AsInt64(); got != http.StatusBadGateway {
		t.Errorf("http.status_code = %d", got)
	}
	if sp.status != codes.Error || !sp.ended {
		t.Errorf("status = %v, ended = %v", sp.status, sp.ended)
	}
}

func TestInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := chi.NewRouter()
	r.Use(Instrument(metrics.New(metrics.WithRegistry(reg))))
	r.Get("/records/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") == "missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ok"))
	})

	for _, id := range []string{"a", "b", "missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/records/"+id, nil))
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "wiretap_api_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			counts[strings.Join(labels, ",")] = m.GetCounter().GetValue()
		}
	}
	if got := counts["route=/records/{id},status=200"]; got != 2 {
		t.Errorf("200 count = %v, want 2 (%v)", got, counts)
	}
	if got := counts["route=/records/{id},status=404"]; got != 1 {
		t.Errorf("404 count = %v, want 1 (%v)", got, counts)
	}
}
