package bench

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultSamples = 10
	DefaultWindow  = 10 * time.Second

	SuccessModeFlag    = "bench-success-mode"
	MeanPolicyFlag     = "bench-mean-policy"
	MaxInFlightFlag    = "bench-max-in-flight"
	RequestTimeoutFlag = "bench-request-timeout"
	BaseURLFlag        = "bench-base-url"

	maxDrain = 1 << 20
)

// SuccessMode decides which responses count as successful.
type SuccessMode string

const (
	// SuccessStatus counts 2xx responses.
	SuccessStatus SuccessMode = "status"
	// SuccessReachable counts any response that arrived, whatever its status.
	SuccessReachable SuccessMode = "reachable"
)

// MeanPolicy decides how failed samples enter the latency mean.
type MeanPolicy string

const (
	// SkipFailed averages only samples that produced a timing; NaN when none did.
	SkipFailed MeanPolicy = "skip-failed"
	// IncludeFailed averages every sample, so a single failure makes the mean NaN.
	IncludeFailed MeanPolicy = "include-failed"
)

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Sampler struct {
	client      Doer
	successMode SuccessMode
	meanPolicy  MeanPolicy
	maxInFlight int
	now         func() time.Time
	instruments *instruments
}

type Option func(*Sampler)

func WithClient(client Doer) Option {
	return func(s *Sampler) { s.client = client }
}

func WithSuccessMode(mode SuccessMode) Option {
	return func(s *Sampler) { s.successMode = mode }
}

func WithMeanPolicy(policy MeanPolicy) Option {
	return func(s *Sampler) { s.meanPolicy = policy }
}

// WithMaxInFlight bounds concurrent latency samples. Zero means unbounded.
func WithMaxInFlight(n int) Option {
	return func(s *Sampler) { s.maxInFlight = n }
}

// WithClock replaces time.Now for timing and the throughput deadline.
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) { s.now = now }
}

func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("bench", pflag.ExitOnError)
	fs.String(SuccessModeFlag, string(SuccessStatus), "status: 2xx responses succeed, reachable: any response succeeds")
	fs.String(MeanPolicyFlag, string(SkipFailed), "skip-failed or include-failed")
	fs.Int(MaxInFlightFlag, 0, "max concurrent latency samples per endpoint, 0 for unbounded")
	fs.Duration(RequestTimeoutFlag, 30*time.Second, "timeout for a single sample request")
	fs.String(BaseURLFlag, "", "base url used to resolve local endpoints such as /api/test")
	return fs
}

func NewSamplerFromFlags() (*Sampler, error) {
	mode := SuccessMode(viper.GetString(SuccessModeFlag))
	switch mode {
	case SuccessStatus, SuccessReachable:
	default:
		return nil, fmt.Errorf("invalid %s: %q", SuccessModeFlag, mode)
	}
	policy := MeanPolicy(viper.GetString(MeanPolicyFlag))
	switch policy {
	case SkipFailed, IncludeFailed:
	default:
		return nil, fmt.Errorf("invalid %s: %q", MeanPolicyFlag, policy)
	}
	return NewSampler(
		WithClient(NewHTTPClient(viper.GetDuration(RequestTimeoutFlag))),
		WithSuccessMode(mode),
		WithMeanPolicy(policy),
		WithMaxInFlight(viper.GetInt(MaxInFlightFlag)),
	), nil
}

func NewSampler(opts ...Option) *Sampler {
	s := &Sampler{
		successMode: SuccessStatus,
		meanPolicy:  SkipFailed,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = NewHTTPClient(30 * time.Second)
	}
	s.instruments = newInstruments()
	return s
}

// NewHTTPClient returns a traced client tuned for bursts of parallel samples against one host.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 32
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(transport),
	}
}

// MeasureLatency fires samples requests at once and waits for all of them.
func (s *Sampler) MeasureLatency(ctx context.Context, target string, samples int) Measurement {
	if samples <= 0 {
		samples = DefaultSamples
	}
	results := make([]Sample, samples)

	var g errgroup.Group
	if s.maxInFlight > 0 {
		g.SetLimit(s.maxInFlight)
	}
	for i := range results {
		i := i
		g.Go(func() error {
			results[i] = s.probe(ctx, target)
			return nil
		})
	}
	_ = g.Wait()

	return Aggregate(results, s.meanPolicy)
}

// MeasureThroughput issues one request at a time until window has elapsed.
// The deadline is checked between requests, so the last one may finish after it.
func (s *Sampler) MeasureThroughput(ctx context.Context, target string, window time.Duration) Measurement {
	if window <= 0 {
		window = DefaultWindow
	}
	var operations, successes int
	start := s.now()
	for s.now().Sub(start) < window {
		if ctx.Err() != nil {
			break
		}
		if s.probe(ctx, target).Success {
			successes++
		}
		operations++
	}
	return Measurement{
		Value:               float64(operations) / window.Seconds(),
		TotalRequests:       operations,
		SuccessfulResponses: successes,
	}
}

// Aggregate folds samples into a Measurement using policy for the mean.
func Aggregate(samples []Sample, policy MeanPolicy) Measurement {
	m := Measurement{TotalRequests: len(samples)}
	var sum float64
	var timed int
	for _, sample := range samples {
		if sample.Success {
			m.SuccessfulResponses++
		}
		if policy == SkipFailed && math.IsNaN(sample.LatencyMs) {
			continue
		}
		sum += sample.LatencyMs
		timed++
	}
	if timed == 0 {
		m.Value = math.NaN()
		return m
	}
	m.Value = sum / float64(timed)
	return m
}

func (s *Sampler) probe(ctx context.Context, target string) Sample {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Sample{LatencyMs: math.NaN()}
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	start := s.now()
	resp, err := s.client.Do(req)
	elapsed := s.now().Sub(start)
	if err != nil {
		s.instruments.record(ctx, req.URL.Host, elapsed, false, true)
		return Sample{LatencyMs: math.NaN()}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	_ = resp.Body.Close()

	sample := Sample{
		LatencyMs: float64(elapsed) / float64(time.Millisecond),
		Success:   s.succeeded(resp),
	}
	s.instruments.record(ctx, req.URL.Host, elapsed, sample.Success, false)
	return sample
}

func (s *Sampler) succeeded(resp *http.Response) bool {
	if s.successMode == SuccessReachable {
		return true
	}
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
