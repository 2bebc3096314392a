// Package observe provides application-wide observability primitives for the
// api-livekit service: OpenTelemetry metrics, tracing helpers, structured
// logging enrichment, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/shubhamINT/api-livekit"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// SessionSetupDuration tracks time from session-established to ACTIVE
	// (assistant lookup plus template rendering).
	SessionSetupDuration metric.Float64Histogram

	// FinalizeDuration tracks the FINALIZING phase: transcript snapshot,
	// recording lookup, record assembly, and webhook hand-off.
	FinalizeDuration metric.Float64Histogram

	// WebhookDuration tracks end-of-call webhook delivery time including
	// retries.
	WebhookDuration metric.Float64Histogram

	// HTTPRequestDuration tracks management API request processing time.
	// Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// --- Counters ---

	// TranscriptEntries counts appended transcript utterances. Use with
	// attribute: attribute.String("speaker", ...)
	TranscriptEntries metric.Int64Counter

	// WebhookDeliveries counts finished deliveries per outcome. Use with
	// attribute: attribute.String("outcome", "delivered"|"rejected"|"exhausted")
	WebhookDeliveries metric.Int64Counter

	// WebhookRetries counts individual retried webhook requests.
	WebhookRetries metric.Int64Counter

	// SessionFailures counts sessions that ended in FAILED. Use with
	// attribute: attribute.String("reason", ...)
	SessionFailures metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live call sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// session setup and webhook delivery latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SessionSetupDuration, err = m.Float64Histogram("livekit.session.setup.duration",
		metric.WithDescription("Time from session-established to ACTIVE."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FinalizeDuration, err = m.Float64Histogram("livekit.session.finalize.duration",
		metric.WithDescription("Duration of the session FINALIZING phase."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.WebhookDuration, err = m.Float64Histogram("livekit.webhook.duration",
		metric.WithDescription("End-of-call webhook delivery time including retries."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("livekit.http.request.duration",
		metric.WithDescription("Management API request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.TranscriptEntries, err = m.Int64Counter("livekit.transcript.entries",
		metric.WithDescription("Total transcript utterances by speaker."),
	); err != nil {
		return nil, err
	}
	if met.WebhookDeliveries, err = m.Int64Counter("livekit.webhook.deliveries",
		metric.WithDescription("Finished webhook deliveries by outcome."),
	); err != nil {
		return nil, err
	}
	if met.WebhookRetries, err = m.Int64Counter("livekit.webhook.retries",
		metric.WithDescription("Individual retried webhook requests."),
	); err != nil {
		return nil, err
	}
	if met.SessionFailures, err = m.Int64Counter("livekit.session.failures",
		metric.WithDescription("Sessions that ended in FAILED, by reason."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("livekit.active_sessions",
		metric.WithDescription("Number of live call sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}
