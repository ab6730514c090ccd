package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
)

const (
	ServiceNameFlag = "telemetry-service-name"
	ZipkinURLFlag   = "telemetry-zipkin-url"
	VersionFlag     = "telemetry-service-version"
)

type Config struct {
	ServiceName    string
	ServiceVersion string
	// ZipkinURL enables trace export when set, e.g. http://localhost:9411/api/v2/spans.
	ZipkinURL  string
	Registerer prometheus.Registerer
}

// Provider owns the meter and tracer providers installed as otel globals.
type Provider struct {
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("telemetry", pflag.ExitOnError)
	fs.String(ServiceNameFlag, "go-bench", "")
	fs.String(VersionFlag, "dev", "")
	fs.String(ZipkinURLFlag, "", "zipkin span endpoint; tracing is off when empty")
	return fs
}

func SetupFromFlags(ctx context.Context) (*Provider, error) {
	return Setup(ctx, Config{
		ServiceName:    viper.GetString(ServiceNameFlag),
		ServiceVersion: viper.GetString(VersionFlag),
		ZipkinURL:      viper.GetString(ZipkinURLFlag),
		Registerer:     prometheus.DefaultRegisterer,
	})
}

// Setup exports otel metrics through the prometheus registerer and, optionally, traces to zipkin.
func Setup(ctx context.Context, conf Config) (*Provider, error) {
	res := resource.NewSchemaless(
		semconv.ServiceName(conf.ServiceName),
		semconv.ServiceVersion(conf.ServiceVersion),
	)

	registerer := conf.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	exporter, err := otelprom.New(otelprom.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("failed creating prometheus exporter: %w", err)
	}
	p := &Provider{
		meterProvider: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exporter),
			sdkmetric.WithResource(res),
		),
	}
	otel.SetMeterProvider(p.meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	if conf.ZipkinURL != "" {
		zipkinExporter, err := zipkin.New(conf.ZipkinURL)
		if err != nil {
			_ = p.meterProvider.Shutdown(ctx)
			return nil, fmt.Errorf("failed creating zipkin exporter: %w", err)
		}
		p.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(zipkinExporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(p.tracerProvider)
		ctxLogger.Info(ctx, "exporting traces", zap.String("zipkin", conf.ZipkinURL))
	}
	return p, nil
}

// Shutdown flushes pending telemetry.
func (p *Provider) Shutdown(ctx context.Context) error {
	var err error
	if p.tracerProvider != nil {
		err = multierr.Append(err, p.tracerProvider.Shutdown(ctx))
	}
	if p.meterProvider != nil {
		err = multierr.Append(err, p.meterProvider.Shutdown(ctx))
	}
	return err
}
