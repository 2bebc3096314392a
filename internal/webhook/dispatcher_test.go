package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/shubhamINT/api-livekit/internal/callrecord"
	"github.com/shubhamINT/api-livekit/internal/observe"
	"github.com/shubhamINT/api-livekit/internal/transcript"
)

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func testRecord() callrecord.Record {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ended := started.Add(90 * time.Second)
	agg := transcript.New()
	agg.Append(transcript.SpeakerAgent, "hello, how can I help?", started.Add(time.Second))
	agg.Append(transcript.SpeakerUser, "I need my order status", started.Add(5*time.Second))

	return callrecord.Record{
		RoomName:        "abc123_9f8e7d6c",
		AssistantID:     "abc123",
		AssistantName:   "Support Bot",
		ToNumber:        "+15550100",
		Transcript:      agg.Snapshot(),
		StartedAt:       started,
		EndedAt:         ended,
		DurationMinutes: callrecord.DurationMinutes(started, ended),
	}
}

func newDispatcher(t *testing.T, opts ...Option) *Dispatcher {
	t.Helper()
	base := []Option{
		WithMetrics(testMetrics(t)),
		WithBackoff(time.Millisecond, 5*time.Millisecond),
	}
	return NewDispatcher(append(base, opts...)...)
}

func TestDeliver_Success(t *testing.T) {
	t.Parallel()

	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("invalid payload JSON: %v", err)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := newDispatcher(t)
	if err := d.Deliver(context.Background(), srv.URL, testRecord()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !got.Success {
		t.Error("expected success=true in envelope")
	}
	if got.Message != "Call details fetched successfully" {
		t.Errorf("unexpected message %q", got.Message)
	}
	if got.Data.RoomName != "abc123_9f8e7d6c" {
		t.Errorf("unexpected room name %q", got.Data.RoomName)
	}
	if got.Data.RecordingPath != nil {
		t.Errorf("expected null recording_path, got %v", *got.Data.RecordingPath)
	}
	if got.Data.ToNumber == nil || *got.Data.ToNumber != "+15550100" {
		t.Errorf("unexpected to_number %v", got.Data.ToNumber)
	}
	if len(got.Data.Transcripts) != 2 {
		t.Fatalf("expected 2 transcript items, got %d", len(got.Data.Transcripts))
	}
	if got.Data.Transcripts[0].Speaker != "agent" {
		t.Errorf("expected agent utterance first, got %q", got.Data.Transcripts[0].Speaker)
	}
	if got.Data.StartedAt != "2026-03-01T10:00:00.000Z" {
		t.Errorf("unexpected started_at %q", got.Data.StartedAt)
	}
	if got.Data.CallDurationMinutes != 1.5 {
		t.Errorf("unexpected duration %v", got.Data.CallDurationMinutes)
	}
}

func TestDeliver_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var bodies [][]byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, body)
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := newDispatcher(t, WithMaxAttempts(5))
	if err := d.Deliver(context.Background(), srv.URL, testRecord()); err != nil {
		t.Fatalf("expected delivery to succeed after retries, got %v", err)
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("expected 4 attempts, got %d", got)
	}

	// Each retry must carry identical content.
	for i := 1; i < len(bodies); i++ {
		if string(bodies[i]) != string(bodies[0]) {
			t.Errorf("attempt %d body differs from first attempt", i+1)
		}
	}
}

func TestDeliver_DoesNotRetryRejection(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	d := newDispatcher(t, WithMaxAttempts(5))
	err := d.Deliver(context.Background(), srv.URL, testRecord())
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", got)
	}
}

func TestDeliver_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := newDispatcher(t, WithMaxAttempts(3))
	err := d.Deliver(context.Background(), srv.URL, testRecord())
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestDeliver_ConnectionFailureIsTransient(t *testing.T) {
	t.Parallel()

	// A closed server port produces connection errors on every attempt.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	d := newDispatcher(t, WithMaxAttempts(2))
	err := d.Deliver(context.Background(), url, testRecord())
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestDeliver_RateLimitIsTransient(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := newDispatcher(t, WithMaxAttempts(3))
	if err := d.Deliver(context.Background(), srv.URL, testRecord()); err != nil {
		t.Fatalf("expected 429 to be retried, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestBuildPayload_Deterministic(t *testing.T) {
	t.Parallel()

	rec := testRecord()
	a, err := json.Marshal(BuildPayload(rec))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(BuildPayload(rec))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(a) != string(b) {
		t.Error("payload is not deterministic for the same record")
	}
}
