// Package observe provides application-wide observability primitives for
// rmsvad: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/rmsvad/pkg/vad"
)

// meterName is the instrumentation scope name used for all rmsvad metrics.
const meterName = "github.com/MrWong99/rmsvad"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// Chunks counts processed chunks. Use with attribute:
	//   attribute.String("state", "speech"|"silence")
	Chunks metric.Int64Counter

	// Events counts detector lifecycle events (audio events excluded). Use
	// with attribute:
	//   attribute.String("type", ...)
	Events metric.Int64Counter

	// SegmentDuration tracks the length of completed speech segments. Use
	// with attribute:
	//   attribute.String("timed_out", "true"|"false")
	SegmentDuration metric.Float64Histogram

	// FeedDuration tracks the processing time of a single chunk.
	FeedDuration metric.Float64Histogram

	// Threshold reports the most recent dynamic threshold of any stream.
	Threshold metric.Float64Gauge

	// ActiveStreams tracks the number of open detection streams.
	ActiveStreams metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// segmentBuckets (seconds) cover utterances from a short word to a
// timed-out monologue.
var segmentBuckets = []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60}

// feedBuckets (seconds) cover per-chunk processing, which is normally well
// under a millisecond.
var feedBuckets = []float64{0.00001, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005, 0.01}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Chunks, err = m.Int64Counter("rmsvad.chunks",
		metric.WithDescription("Total processed chunks by detector state."),
	); err != nil {
		return nil, err
	}
	if met.Events, err = m.Int64Counter("rmsvad.events",
		metric.WithDescription("Total speech start, end and timeout events."),
	); err != nil {
		return nil, err
	}
	if met.SegmentDuration, err = m.Float64Histogram("rmsvad.segment.duration",
		metric.WithDescription("Length of completed speech segments."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(segmentBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FeedDuration, err = m.Float64Histogram("rmsvad.feed.duration",
		metric.WithDescription("Processing time of a single chunk."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(feedBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Threshold, err = m.Float64Gauge("rmsvad.threshold",
		metric.WithDescription("Most recent dynamic detection threshold."),
	); err != nil {
		return nil, err
	}
	if met.ActiveStreams, err = m.Int64UpDownCounter("rmsvad.active_streams",
		metric.WithDescription("Number of open detection streams."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("rmsvad.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails (should not happen with the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordFeed records one processed chunk: its state after the tick, its
// processing time and the detector's threshold.
func (m *Metrics) RecordFeed(ctx context.Context, speaking bool, elapsed time.Duration, threshold float64) {
	state := "silence"
	if speaking {
		state = "speech"
	}
	m.Chunks.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
	m.FeedDuration.Record(ctx, elapsed.Seconds())
	m.Threshold.Record(ctx, threshold)
}

// RecordEvents counts the transition events in evs. Audio events are skipped.
func (m *Metrics) RecordEvents(ctx context.Context, evs []vad.Event) {
	for _, ev := range evs {
		if ev.Type == vad.EventAudio {
			continue
		}
		m.Events.Add(ctx, 1, metric.WithAttributes(attribute.String("type", ev.Type.String())))
	}
}

// RecordSegment records the duration of a completed segment.
func (m *Metrics) RecordSegment(ctx context.Context, duration float64, timedOut bool) {
	m.SegmentDuration.Record(ctx, duration,
		metric.WithAttributes(attribute.String("timed_out", strconv.FormatBool(timedOut))),
	)
}
