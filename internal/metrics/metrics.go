// Package metrics defines the indexer's OpenTelemetry instruments. They
// are recorded through whatever MeterProvider internal/httpserver.NewOTelSDK
// installed globally, so a Prometheus exporter scrapes them via /server/metrics
// with no separate wiring.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "ibc-lifecycle-indexer"

// Recorder wraps the counters and histograms the event pipeline reports
// against on every processed chain event.
type Recorder struct {
	eventsProcessed  metric.Int64Counter
	eventsFailed     metric.Int64Counter
	packetLatency    metric.Float64Histogram
	priceCallsOK     metric.Int64Counter
	priceCallsFailed metric.Int64Counter
}

// New builds a Recorder against the global MeterProvider. Safe to call
// before a MeterProvider is installed: instruments record nothing until
// one is installed, after which the global delegate forwards to it.
func New() (*Recorder, error) {
	meter := otel.Meter(meterName)

	eventsProcessed, err := meter.Int64Counter(
		"ibc_events_processed_total",
		metric.WithDescription("chain events successfully applied to the index"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create events_processed counter: %w", err)
	}

	eventsFailed, err := meter.Int64Counter(
		"ibc_events_failed_total",
		metric.WithDescription("chain events that errored during processing"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create events_failed counter: %w", err)
	}

	packetLatency, err := meter.Float64Histogram(
		"ibc_packet_lifecycle_seconds",
		metric.WithDescription("time between send_packet and packet completion"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create packet_lifecycle histogram: %w", err)
	}

	priceCallsOK, err := meter.Int64Counter(
		"ibc_price_provider_calls_total",
		metric.WithDescription("successful upstream price provider calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create price_provider_calls counter: %w", err)
	}

	priceCallsFailed, err := meter.Int64Counter(
		"ibc_price_provider_errors_total",
		metric.WithDescription("failed upstream price provider calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create price_provider_errors counter: %w", err)
	}

	return &Recorder{
		eventsProcessed:  eventsProcessed,
		eventsFailed:     eventsFailed,
		packetLatency:    packetLatency,
		priceCallsOK:     priceCallsOK,
		priceCallsFailed: priceCallsFailed,
	}, nil
}

// EventType is the attribute recorded alongside event counters.
type EventType string

func (r *Recorder) RecordEventProcessed(ctx context.Context, eventType EventType) {
	r.eventsProcessed.Add(ctx, 1, metric.WithAttributes(eventTypeAttr(eventType)))
}

func (r *Recorder) RecordEventFailed(ctx context.Context, eventType EventType) {
	r.eventsFailed.Add(ctx, 1, metric.WithAttributes(eventTypeAttr(eventType)))
}

// RecordPacketCompletion records how long a packet took to resolve, in
// seconds, from send_packet to its terminal acknowledgement or timeout.
func (r *Recorder) RecordPacketCompletion(ctx context.Context, seconds float64, status string) {
	r.packetLatency.Record(ctx, seconds, metric.WithAttributes(statusAttr(status)))
}

func (r *Recorder) RecordPriceProviderCall(ctx context.Context, ok bool) {
	if ok {
		r.priceCallsOK.Add(ctx, 1)
		return
	}
	r.priceCallsFailed.Add(ctx, 1)
}

func eventTypeAttr(t EventType) attribute.KeyValue {
	return attribute.String("event_type", string(t))
}

func statusAttr(status string) attribute.KeyValue {
	return attribute.String("status", status)
}
