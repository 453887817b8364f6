package httpserver

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// OTelConfig configures the OpenTelemetry exporter pipeline.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	EnableTracing bool
	UseOTLPTraces bool
	OTLPTracesURL string

	EnableMetrics     bool
	UsePrometheus     bool
	UseOTLPMetrics    bool
	OTLPMetricsURL    string
	PrometheusHandler *prometheus.Exporter

	EnableLogs  bool
	UseOTLPLogs bool
	OTLPLogsURL string

	InsecureOTLP bool

	OTLPClientCertFile string
	OTLPClientKeyFile  string
	OTLPCACertFile     string

	DevelopmentMode bool
}

// DefaultOTelConfig returns the indexer's default telemetry configuration:
// Prometheus for metrics, stdout exporters in development mode.
func DefaultOTelConfig(developmentMode bool) *OTelConfig {
	return &OTelConfig{
		ServiceName:     "ibc-lifecycle-indexer",
		ServiceVersion:  "1.0.0",
		Environment:     "production",
		EnableTracing:   true,
		UseOTLPTraces:   !developmentMode,
		OTLPTracesURL:   "http://localhost:4318/v1/traces",
		EnableMetrics:   true,
		UsePrometheus:   true,
		UseOTLPMetrics:  false,
		OTLPMetricsURL:  "http://localhost:4318/v1/metrics",
		EnableLogs:      false,
		UseOTLPLogs:     false,
		OTLPLogsURL:     "http://localhost:4318/v1/logs",
		InsecureOTLP:    developmentMode,
		DevelopmentMode: developmentMode,
	}
}

// NewOTelSDK bootstraps tracing, metrics, and (optionally) logs. Callers
// must invoke the returned shutdown function to flush telemetry on exit.
func NewOTelSDK(ctx context.Context, config *OTelConfig) (func(context.Context) error, error) {
	if config == nil {
		config = DefaultOTelConfig(false)
	}

	var shutdownFuncs []func(context.Context) error
	var err error

	shutdown := func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	handleErr := func(inErr error) {
		err = errors.Join(inErr, shutdown(ctx))
	}

	res, err := newResource(config)
	if err != nil {
		return shutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	otel.SetTextMapPropagator(newPropagator())

	if config.EnableTracing {
		tracerProvider, err := newTracerProvider(ctx, res, config)
		if err != nil {
			handleErr(err)
			return shutdown, err
		}
		shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
		otel.SetTracerProvider(tracerProvider)
	}

	if config.EnableMetrics {
		meterProvider, err := newMeterProvider(ctx, res, config)
		if err != nil {
			handleErr(err)
			return shutdown, err
		}
		shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
		otel.SetMeterProvider(meterProvider)
	}

	if config.EnableLogs {
		loggerProvider, err := newLoggerProvider(ctx, res, config)
		if err != nil {
			handleErr(err)
			return shutdown, err
		}
		shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)
		global.SetLoggerProvider(loggerProvider)
	}

	return shutdown, nil
}

func newResource(config *OTelConfig) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironmentName(config.Environment),
		),
	)
}

func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

func buildTLSConfig(config *OTelConfig) (*tls.Config, error) {
	if config.InsecureOTLP {
		return nil, nil
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if config.OTLPCACertFile != "" {
		caCert, err := os.ReadFile(config.OTLPCACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to append CA certificate")
		}
		tlsConfig.RootCAs = caCertPool
	}

	if config.OTLPClientCertFile != "" && config.OTLPClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(config.OTLPClientCertFile, config.OTLPClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

func newTracerProvider(ctx context.Context, res *resource.Resource, config *OTelConfig) (*trace.TracerProvider, error) {
	var exporter trace.SpanExporter
	var err error

	switch {
	case config.DevelopmentMode:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
	case config.UseOTLPTraces:
		otlpOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.OTLPTracesURL)}
		if config.InsecureOTLP {
			otlpOpts = append(otlpOpts, otlptracehttp.WithInsecure())
		} else {
			tlsConfig, err := buildTLSConfig(config)
			if err != nil {
				return nil, fmt.Errorf("failed to build TLS config for traces: %w", err)
			}
			if tlsConfig != nil {
				otlpOpts = append(otlpOpts, otlptracehttp.WithTLSClientConfig(tlsConfig))
			}
		}
		exporter, err = otlptracehttp.New(ctx, otlpOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
	default:
		return trace.NewTracerProvider(trace.WithResource(res)), nil
	}

	return trace.NewTracerProvider(
		trace.WithBatcher(exporter, trace.WithBatchTimeout(5*time.Second)),
		trace.WithResource(res),
	), nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource, config *OTelConfig) (*metric.MeterProvider, error) {
	var readers []metric.Reader

	if config.UsePrometheus {
		promExporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		config.PrometheusHandler = promExporter
		readers = append(readers, promExporter)
	}

	if config.UseOTLPMetrics {
		if config.DevelopmentMode {
			stdoutExporter, err := stdoutmetric.New()
			if err != nil {
				return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
			}
			readers = append(readers, metric.NewPeriodicReader(stdoutExporter, metric.WithInterval(10*time.Second)))
		} else {
			otlpOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.OTLPMetricsURL)}
			if config.InsecureOTLP {
				otlpOpts = append(otlpOpts, otlpmetrichttp.WithInsecure())
			} else {
				tlsConfig, err := buildTLSConfig(config)
				if err != nil {
					return nil, fmt.Errorf("failed to build TLS config for metrics: %w", err)
				}
				if tlsConfig != nil {
					otlpOpts = append(otlpOpts, otlpmetrichttp.WithTLSClientConfig(tlsConfig))
				}
			}
			otlpExporter, err := otlpmetrichttp.New(ctx, otlpOpts...)
			if err != nil {
				return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
			}
			readers = append(readers, metric.NewPeriodicReader(otlpExporter, metric.WithInterval(60*time.Second)))
		}
	}

	if len(readers) == 0 {
		return metric.NewMeterProvider(metric.WithResource(res)), nil
	}

	opts := []metric.Option{metric.WithResource(res)}
	for _, reader := range readers {
		opts = append(opts, metric.WithReader(reader))
	}
	return metric.NewMeterProvider(opts...), nil
}

func newLoggerProvider(ctx context.Context, res *resource.Resource, config *OTelConfig) (*log.LoggerProvider, error) {
	var exporter log.Exporter
	var err error

	switch {
	case config.DevelopmentMode:
		exporter, err = stdoutlog.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout log exporter: %w", err)
		}
	case config.UseOTLPLogs:
		otlpOpts := []otlploghttp.Option{otlploghttp.WithEndpoint(config.OTLPLogsURL)}
		if config.InsecureOTLP {
			otlpOpts = append(otlpOpts, otlploghttp.WithInsecure())
		} else {
			tlsConfig, err := buildTLSConfig(config)
			if err != nil {
				return nil, fmt.Errorf("failed to build TLS config for logs: %w", err)
			}
			if tlsConfig != nil {
				otlpOpts = append(otlpOpts, otlploghttp.WithTLSClientConfig(tlsConfig))
			}
		}
		exporter, err = otlploghttp.New(ctx, otlpOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
		}
	default:
		return log.NewLoggerProvider(log.WithResource(res)), nil
	}

	return log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(exporter)),
		log.WithResource(res),
	), nil
}
