package bench

import (
	"context"
	"fmt"
	"math"
	"net/url"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
)

// Runner maps a group of endpoints through the matching sampler.
type Runner struct {
	sampler *Sampler
	baseURL *url.URL
}

func NewRunner(sampler *Sampler, baseURL *url.URL) *Runner {
	return &Runner{sampler: sampler, baseURL: baseURL}
}

func NewRunnerFromFlags() (*Runner, error) {
	sampler, err := NewSamplerFromFlags()
	if err != nil {
		return nil, err
	}
	var base *url.URL
	if raw := viper.GetString(BaseURLFlag); raw != "" {
		base, err = url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", BaseURLFlag, err)
		}
	}
	return NewRunner(sampler, base), nil
}

// Run measures every endpoint of g concurrently and returns results in endpoint order.
// Values are rounded to the nearest integer; a NaN value stays NaN.
func (r *Runner) Run(ctx context.Context, g Group) ([]BenchmarkData, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	targets := make([]string, len(g.Endpoints))
	for i, e := range g.Endpoints {
		target, err := e.Resolve(r.baseURL)
		if err != nil {
			return nil, err
		}
		targets[i] = target
	}

	ctx = ctxLogger.With(ctx, zap.String("group", g.Name), zap.String("kind", string(g.Kind)))
	ctxLogger.Debug(ctx, "running benchmark group", zap.Int("endpoints", len(targets)))

	out := make([]BenchmarkData, len(g.Endpoints))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, e := range g.Endpoints {
		i, e := i, e
		eg.Go(func() error {
			m, err := r.measure(egCtx, g, targets[i])
			if err != nil {
				return err
			}
			out[i] = BenchmarkData{
				Name:                e.Name,
				Value:               Metric(math.Round(m.Value)),
				TotalRequests:       m.TotalRequests,
				SuccessfulResponses: m.SuccessfulResponses,
			}
			ctxLogger.Debug(egCtx, "endpoint measured",
				zap.String("endpoint", e.Name),
				zap.Float64("value", m.Value),
				zap.Int("total", m.TotalRequests),
				zap.Int("successful", m.SuccessfulResponses),
			)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("benchmark %s interrupted: %w", g.Name, err)
	}
	return out, nil
}

func (r *Runner) measure(ctx context.Context, g Group, target string) (Measurement, error) {
	switch g.Kind {
	case KindLatency:
		return r.sampler.MeasureLatency(ctx, target, g.Samples), nil
	case KindThroughput:
		return r.sampler.MeasureThroughput(ctx, target, g.Window), nil
	default:
		return Measurement{}, fmt.Errorf("group %s: %w: %q", g.Name, ErrUnknownKind, g.Kind)
	}
}
