package bench

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/Seann-Moser/go-bench/pkg/bench"

type instruments struct {
	samples metric.Int64Counter
	latency metric.Float64Histogram
}

func newInstruments() *instruments {
	meter := otel.Meter(meterName)
	i := &instruments{}
	i.samples, _ = meter.Int64Counter(
		"bench_sample_count",
		metric.WithDescription("Number of benchmark sample requests."),
		metric.WithUnit("{request}"),
	)
	i.latency, _ = meter.Float64Histogram(
		"bench_sample_latency",
		metric.WithDescription("Latency of benchmark sample requests that got a response."),
		metric.WithUnit("ms"),
	)
	return i
}

func (i *instruments) record(ctx context.Context, host string, elapsed time.Duration, success, failed bool) {
	if i == nil || i.samples == nil {
		return
	}
	// a cancelled run still gets counted
	ctx = context.WithoutCancel(ctx)
	attrs := metric.WithAttributes(
		attribute.String("host", host),
		attribute.Bool("success", success),
	)
	i.samples.Add(ctx, 1, attrs)
	if !failed && i.latency != nil {
		i.latency.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
	}
}
