package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	promreg "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/ncecere/feedback_assistant/internal/config"
)

const (
	serviceName      = "feedback-assistant"
	metricsNamespace = "feedback_assistant"
)

type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *metric.MeterProvider
	promHandler    http.Handler
	registry       *promreg.Registry
	shutdownFuncs  []func(context.Context) error

	httpRequestCounter *promreg.CounterVec
	httpRequestLatency *promreg.HistogramVec
	stageLatency       *promreg.HistogramVec
	stageCounter       *promreg.CounterVec
	sentimentCounter   *promreg.CounterVec
	speechCounter      *promreg.CounterVec
}

// Setup wires tracing and metrics. It returns a nil provider when both are
// disabled; every method on Provider is nil-safe.
func Setup(ctx context.Context, cfg config.ObservabilityConfig) (*Provider, error) {
	if !cfg.EnableOTLP && !cfg.EnableMetrics {
		return nil, nil
	}

	provider := &Provider{}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	if cfg.EnableOTLP {
		exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(otlpOptions(cfg.OTLPEndpoint)...))
		if err != nil {
			return nil, err
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		provider.tracerProvider = tp
		provider.shutdownFuncs = append(provider.shutdownFuncs, tp.Shutdown)
	}

	if cfg.EnableMetrics {
		if err := provider.setupMetrics(res); err != nil {
			return nil, err
		}
	}

	return provider, nil
}

func otlpOptions(rawEndpoint string) []otlptracegrpc.Option {
	endpoint := strings.TrimSpace(rawEndpoint)
	if endpoint == "" {
		endpoint = "localhost:4317"
	}
	opts := []otlptracegrpc.Option{}
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
		opts = append(opts, otlptracegrpc.WithInsecure())
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
	default:
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return append(opts, otlptracegrpc.WithEndpoint(endpoint))
}

func (p *Provider) setupMetrics(res *resource.Resource) error {
	registry := promreg.NewRegistry()
	promExporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return err
	}
	mp := metric.NewMeterProvider(
		metric.WithReader(promExporter),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	p.meterProvider = mp
	p.registry = registry
	p.promHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
	p.shutdownFuncs = append(p.shutdownFuncs, mp.Shutdown)

	p.httpRequestCounter = newCounter("http_requests_total", "Total number of HTTP requests processed.", "method", "route", "status")
	p.httpRequestLatency = newHistogram("http_request_duration_seconds", "Duration of HTTP requests in seconds.", "method", "route", "status")
	p.stageLatency = newHistogram("pipeline_stage_duration_seconds", "Duration of each analysis pipeline stage.", "stage", "outcome")
	p.stageCounter = newCounter("pipeline_stages_total", "Pipeline stage completions by outcome.", "stage", "outcome")
	p.sentimentCounter = newCounter("sentiment_labels_total", "Classified feedback by sentiment label.", "label")
	p.speechCounter = newCounter("speech_artifacts_total", "Speech synthesis results by kind.", "result")
	for _, c := range []promreg.Collector{
		p.httpRequestCounter, p.httpRequestLatency, p.stageLatency,
		p.stageCounter, p.sentimentCounter, p.speechCounter,
	} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

var latencyBuckets = []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30}

func newCounter(name, help string, labels ...string) *promreg.CounterVec {
	return promreg.NewCounterVec(promreg.CounterOpts{Namespace: metricsNamespace, Name: name, Help: help}, labels)
}

func newHistogram(name, help string, labels ...string) *promreg.HistogramVec {
	return promreg.NewHistogramVec(promreg.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      name,
		Help:      help,
		Buckets:   latencyBuckets,
	}, labels)
}

func (p *Provider) PrometheusHandler() http.Handler {
	if p == nil || p.promHandler == nil {
		return nil
	}
	return p.promHandler
}

// Registry exposes the prometheus registry, mainly for tests.
func (p *Provider) Registry() *promreg.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) TracerProvider() *sdktrace.TracerProvider {
	if p == nil {
		return nil
	}
	return p.tracerProvider
}

func (p *Provider) RecordHTTPRequest(_ context.Context, method, route string, status int, duration time.Duration) {
	if p == nil {
		return
	}

	statusLabel := strconv.Itoa(status)

	if p.httpRequestCounter != nil {
		p.httpRequestCounter.WithLabelValues(method, route, statusLabel).Inc()
	}

	if p.httpRequestLatency != nil {
		p.httpRequestLatency.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
	}
}

// RecordStage tracks how long a pipeline stage took and how it ended.
func (p *Provider) RecordStage(_ context.Context, stage, outcome string, duration time.Duration) {
	if p == nil || p.stageLatency == nil {
		return
	}
	p.stageLatency.WithLabelValues(stage, outcome).Observe(duration.Seconds())
	p.stageCounter.WithLabelValues(stage, outcome).Inc()
}

func (p *Provider) RecordSentiment(label string) {
	if p == nil || p.sentimentCounter == nil {
		return
	}
	p.sentimentCounter.WithLabelValues(label).Inc()
}

func (p *Provider) RecordSpeech(result string) {
	if p == nil || p.speechCounter == nil {
		return
	}
	p.speechCounter.WithLabelValues(result).Inc()
}
