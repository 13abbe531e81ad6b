// Package observe provides observability primitives for micwire:
// OpenTelemetry metric instruments for the capture pipeline and a metric
// provider setup with a Prometheus exporter bridge.
//
// A package-level default [Metrics] instance ([Default]) is provided for
// convenience; tests should use [NewMetrics] with their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all micwire metrics.
const meterName = "github.com/emmett/micwire"

// Metrics holds the OpenTelemetry metric instruments recorded by the
// capture pipeline. All instruments are safe for concurrent use.
type Metrics struct {
	// PacketsEncoded counts packets successfully handed to the queue.
	PacketsEncoded metric.Int64Counter

	// EncodeErrors counts per-frame encode failures (skipped frames).
	EncodeErrors metric.Int64Counter

	// DecodeErrors counts per-packet decode failures (skipped packets).
	DecodeErrors metric.Int64Counter

	// DroppedPackets counts packets discarded because the consumer side
	// of the queue was already closed.
	DroppedPackets metric.Int64Counter

	// ActiveCaptures tracks the number of live capture goroutines.
	ActiveCaptures metric.Int64UpDownCounter

	// EncodeDuration tracks the wall time of one frame encode, in seconds.
	EncodeDuration metric.Float64Histogram
}

// encodeBuckets defines histogram boundaries (seconds) sized for per-frame
// encode latencies well under one pacing interval.
var encodeBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05,
}

// NewMetrics creates a fully initialised [Metrics] using the given
// provider. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.PacketsEncoded, err = m.Int64Counter("micwire.packets.encoded",
		metric.WithDescription("Packets successfully encoded and queued."),
	); err != nil {
		return nil, err
	}
	if met.EncodeErrors, err = m.Int64Counter("micwire.encode.errors",
		metric.WithDescription("Frames skipped due to encode failures."),
	); err != nil {
		return nil, err
	}
	if met.DecodeErrors, err = m.Int64Counter("micwire.decode.errors",
		metric.WithDescription("Packets skipped due to decode failures."),
	); err != nil {
		return nil, err
	}
	if met.DroppedPackets, err = m.Int64Counter("micwire.packets.dropped",
		metric.WithDescription("Packets discarded after the consumer was closed."),
	); err != nil {
		return nil, err
	}
	if met.ActiveCaptures, err = m.Int64UpDownCounter("micwire.captures.active",
		metric.WithDescription("Live capture goroutines."),
	); err != nil {
		return nil, err
	}
	if met.EncodeDuration, err = m.Float64Histogram("micwire.encode.duration",
		metric.WithDescription("Wall time of one frame encode."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(encodeBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the process-wide Metrics instance, created lazily from
// the global OTel meter provider. Instrument creation against the global
// provider cannot fail.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, _ = NewMetrics(otel.GetMeterProvider())
	})
	return defaultMetrics
}
