package metrics

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const meterName = "github.com/Seann-Moser/go-bench/server/metrics"

// Otel records request counts and latency through the global otel meter provider.
type Otel struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

func NewOtel() (*Otel, error) {
	meter := otel.Meter(meterName)
	requests, err := meter.Int64Counter(
		"server_request_count",
		metric.WithDescription("Number of finished API calls."),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"server_latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Measures the duration of inbound HTTP requests."),
	)
	if err != nil {
		return nil, err
	}
	return &Otel{requests: requests, latency: latency}, nil
}

func (o *Otel) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(r.URL.Path, MetricsPath) {
			next.ServeHTTP(w, r)
			return
		}
		ww := newStatusWriter(w)
		start := time.Now()

		next.ServeHTTP(ww, r)

		attrs := metric.WithAttributes(
			semconv.HTTPResponseStatusCode(ww.status),
			semconv.HTTPRequestMethodKey.String(r.Method),
			semconv.HTTPRoute(routeTemplate(r)),
		)
		o.requests.Add(r.Context(), 1, attrs)
		o.latency.Record(r.Context(), float64(time.Since(start))/float64(time.Millisecond), attrs)
	})
}
