package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestWebhookDeliveryCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.WebhookDeliveries.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "delivered")))
	m.WebhookDeliveries.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "exhausted")))
	m.WebhookRetries.Add(ctx, 3)

	rm := collect(t, reader)

	deliveries := findMetric(rm, "livekit.webhook.deliveries")
	if deliveries == nil {
		t.Fatal("livekit.webhook.deliveries not found")
	}
	sum, ok := deliveries.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", deliveries.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 2 {
		t.Errorf("expected 2 deliveries recorded, got %d", total)
	}
}

func TestActiveSessionsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, -1)

	rm := collect(t, reader)
	active := findMetric(rm, "livekit.active_sessions")
	if active == nil {
		t.Fatal("livekit.active_sessions not found")
	}
	sum, ok := active.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", active.Data)
	}
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
		t.Errorf("expected gauge value 1, got %+v", sum.DataPoints)
	}
}

func TestFinalizeDurationHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.FinalizeDuration.Record(ctx, 0.12)
	m.FinalizeDuration.Record(ctx, 0.34)

	rm := collect(t, reader)
	hist := findMetric(rm, "livekit.session.finalize.duration")
	if hist == nil {
		t.Fatal("livekit.session.finalize.duration not found")
	}
	data, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("unexpected data type %T", hist.Data)
	}
	var count uint64
	for _, dp := range data.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Errorf("expected 2 observations, got %d", count)
	}
}
