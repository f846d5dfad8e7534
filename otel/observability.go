// Package otel reports responsive store activity through OpenTelemetry.
package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/odvcencio/furry-media/responsive"
)

const (
	instrumentationName = "github.com/odvcencio/furry-media"
)

// Observability implements responsive.Observer using OpenTelemetry
type Observability struct {
	tracer trace.Tracer
	meter  metric.Meter

	matchCounter   metric.Int64Counter
	flushCounter   metric.Int64Counter
	flushDuration  metric.Float64Histogram
	listenerErrors metric.Int64Counter
}

var _ responsive.Observer = (*Observability)(nil)

// Option configures the Observability
type Option func(*Observability)

// WithTracerProvider sets a custom tracer provider
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *Observability) {
		o.tracer = provider.Tracer(instrumentationName)
	}
}

// WithMeterProvider sets a custom meter provider
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *Observability) {
		o.meter = provider.Meter(instrumentationName)
	}
}

// New creates the observer. Pass it to responsive.WithObserver.
func New(opts ...Option) (*Observability, error) {
	obs := &Observability{
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(obs)
	}

	var err error
	obs.matchCounter, err = obs.meter.Int64Counter(
		"responsive.match.count",
		metric.WithDescription("Number of media query events received from the host"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	obs.flushCounter, err = obs.meter.Int64Counter(
		"responsive.flush.count",
		metric.WithDescription("Number of debounced listener flushes"),
		metric.WithUnit("{flush}"),
	)
	if err != nil {
		return nil, err
	}

	obs.flushDuration, err = obs.meter.Float64Histogram(
		"responsive.flush.duration",
		metric.WithDescription("Time spent calling listeners in one flush"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	obs.listenerErrors, err = obs.meter.Int64Counter(
		"responsive.listener.errors",
		metric.WithDescription("Number of listeners that panicked during a flush"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return obs, nil
}

// OnMatch counts a host event. Redundant events are counted with
// changed=false.
func (o *Observability) OnMatch(storeID, key string, matches, changed bool) {
	o.matchCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("store.id", storeID),
			attribute.String("query.key", key),
			attribute.Bool("matches", matches),
			attribute.Bool("changed", changed),
		),
	)
}

// OnFlush records a span covering the flush and its duration.
func (o *Observability) OnFlush(storeID string, listeners int, started time.Time, elapsed time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("store.id", storeID),
	}
	ctx, span := o.tracer.Start(context.Background(), "responsive.flush",
		trace.WithTimestamp(started),
		trace.WithAttributes(append(attrs, attribute.Int("listeners", listeners))...),
	)
	o.flushCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	o.flushDuration.Record(ctx, float64(elapsed)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	span.SetStatus(codes.Ok, "")
	span.End(trace.WithTimestamp(started.Add(elapsed)))
}

// OnListenerError records a panicking listener.
func (o *Observability) OnListenerError(storeID string, err error) {
	ctx, span := o.tracer.Start(context.Background(), "responsive.listener",
		trace.WithAttributes(attribute.String("store.id", storeID)),
	)
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
	o.listenerErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("store.id", storeID)),
	)
	span.End()
}
