// Package metrics exports request and domain counters in Prometheus format through an OpenTelemetry meter.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	export "go.opentelemetry.io/otel/sdk/export/metric"
	"go.opentelemetry.io/otel/sdk/metric/aggregator/histogram"
	controller "go.opentelemetry.io/otel/sdk/metric/controller/basic"
	processor "go.opentelemetry.io/otel/sdk/metric/processor/basic"
	selector "go.opentelemetry.io/otel/sdk/metric/selector/simple"
)

type Metrics struct {
	exporter *prometheus.Exporter
	requests metric.Int64Counter
	latency  metric.Float64ValueRecorder
	events   metric.Int64Counter
}

func New(service string) (*Metrics, error) {
	config := prometheus.Config{}
	c := controller.New(
		processor.New(
			selector.NewWithHistogramDistribution(
				histogram.WithExplicitBoundaries(config.DefaultHistogramBoundaries),
			),
			export.CumulativeExportKindSelector(),
			processor.WithMemory(true),
		),
	)
	exporter, err := prometheus.New(config, c)
	if err != nil {
		return nil, fmt.Errorf("initialize prometheus exporter: %w", err)
	}

	meter := metric.Must(exporter.MeterProvider().Meter(service))
	return &Metrics{
		exporter: exporter,
		requests: meter.NewInt64Counter(
			"http_server_requests_total",
			metric.WithDescription("Count of completed requests, by HTTP method, route and response status"),
		),
		latency: meter.NewFloat64ValueRecorder(
			"http_server_duration_seconds",
			metric.WithDescription("Request latency, by HTTP method and route"),
		),
		events: meter.NewInt64Counter(
			"fillog_events_total",
			metric.WithDescription("Count of committed domain writes, by event"),
		),
	}, nil
}

// SetGlobal makes this exporter's provider the process-wide meter provider.
func (m *Metrics) SetGlobal() {
	global.SetMeterProvider(m.exporter.MeterProvider())
}

// Handler serves the Prometheus scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return m.exporter
}

// Middleware records one request count and one latency sample per request,
// labelled with the matched chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := []attribute.KeyValue{
			attribute.String("method", r.Method),
			attribute.String("route", route),
		}
		m.latency.Record(r.Context(), time.Since(started).Seconds(), attrs...)
		m.requests.Add(r.Context(), 1, append(attrs, attribute.String("status", strconv.Itoa(status)))...)
	})
}

// Event counts a committed domain write such as "reply_created".
func (m *Metrics) Event(ctx context.Context, name string) {
	if m == nil {
		return
	}
	m.events.Add(ctx, 1, attribute.String("event", name))
}
