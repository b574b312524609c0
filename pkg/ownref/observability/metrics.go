package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records ownref metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordLock records a lock attempt against a live owner and
	// whether it observed a present value.
	RecordLock(ctx context.Context, ownerID string, present bool)

	// RecordRegistration records the owner's reader count after a
	// registry change.
	RecordRegistration(ctx context.Context, ownerID string, readers int)

	// RecordReclaim records how long a reset or close waited for
	// readers to quiesce. op is "reset" or "close".
	RecordReclaim(ctx context.Context, ownerID, op string, wait time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	locks       metric.Int64Counter
	readers     metric.Int64Gauge
	reclaimWait metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("ownref")

	locks, err := meter.Int64Counter("ownref.reader.locks",
		metric.WithDescription("Number of reader lock acquisitions"),
	)
	if err != nil {
		return nil, err
	}

	readers, err := meter.Int64Gauge("ownref.owner.readers",
		metric.WithDescription("Number of readers registered with an owner"),
	)
	if err != nil {
		return nil, err
	}

	reclaimWait, err := meter.Float64Histogram("ownref.owner.reclaim_wait_ms",
		metric.WithDescription("Time a reset or close waited for readers to quiesce"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		locks:       locks,
		readers:     readers,
		reclaimWait: reclaimWait,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the
// provider before recording:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		return NoopMetrics{}
	}
	return m
}

// RecordLock records a lock attempt.
func (m *otelMetrics) RecordLock(ctx context.Context, ownerID string, present bool) {
	m.locks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("owner_id", ownerID),
		attribute.Bool("present", present),
	))
}

// RecordRegistration records the current reader count.
func (m *otelMetrics) RecordRegistration(ctx context.Context, ownerID string, readers int) {
	m.readers.Record(ctx, int64(readers), metric.WithAttributes(
		attribute.String("owner_id", ownerID),
	))
}

// RecordReclaim records reclaim wait time.
func (m *otelMetrics) RecordReclaim(ctx context.Context, ownerID, op string, wait time.Duration) {
	m.reclaimWait.Record(ctx, float64(wait.Microseconds())/1000.0, metric.WithAttributes(
		attribute.String("owner_id", ownerID),
		attribute.String("op", op),
	))
}
