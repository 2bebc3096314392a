// Package webhook delivers the final call record to an assistant's
// configured end-call URL.
//
// Delivery is a single POST per finalized session, retried with exponential
// backoff on transient failure (timeout, connection error, 5xx) up to a
// bounded attempt cap. A definitive client-side rejection (4xx other than
// 408/429) is reported once and abandoned. Webhook failure is an operational
// alert, never a session error: callers log the returned error and complete
// teardown regardless.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shubhamINT/api-livekit/internal/callrecord"
	"github.com/shubhamINT/api-livekit/internal/observe"
)

// ErrRejected is returned when the endpoint answers with a definitive
// client-side rejection. The delivery is not retried.
var ErrRejected = errors.New("webhook rejected by endpoint")

// ErrExhausted is returned when every allowed attempt failed transiently.
var ErrExhausted = errors.New("webhook retry attempts exhausted")

const (
	defaultMaxAttempts    = 5
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 15 * time.Second
	defaultRequestTimeout = 10 * time.Second
)

// Option is a functional option for [NewDispatcher].
type Option func(*Dispatcher)

// WithHTTPClient replaces the default HTTP client. Useful in tests.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// WithMaxAttempts sets the total attempt cap (first try included).
func WithMaxAttempts(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// WithBackoff sets the initial and maximum backoff delays.
func WithBackoff(initial, max time.Duration) Option {
	return func(d *Dispatcher) {
		if initial > 0 {
			d.initialBackoff = initial
		}
		if max > 0 {
			d.maxBackoff = max
		}
	}
}

// WithMetrics wires delivery metrics. When not set, [observe.DefaultMetrics]
// is used.
func WithMetrics(m *observe.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// Dispatcher posts call records to end-call URLs. Safe for concurrent use;
// one Dispatcher serves all sessions.
type Dispatcher struct {
	client         *http.Client
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	metrics        *observe.Metrics
}

// NewDispatcher creates a Dispatcher with bounded per-request timeouts and
// the default retry policy.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:         &http.Client{Timeout: defaultRequestTimeout},
		maxAttempts:    defaultMaxAttempts,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
	}
	for _, o := range opts {
		o(d)
	}
	if d.metrics == nil {
		d.metrics = observe.DefaultMetrics()
	}
	return d
}

// Deliver posts the record to url. It blocks until the delivery succeeds,
// is definitively rejected, the attempt cap is exhausted, or ctx ends.
//
// The payload is built once; every retry carries identical bytes. Returns
// nil on success, [ErrRejected] on a 4xx answer, or an error wrapping
// [ErrExhausted] after the final transient failure.
func (d *Dispatcher) Deliver(ctx context.Context, url string, rec callrecord.Record) error {
	body, err := json.Marshal(BuildPayload(rec))
	if err != nil {
		return fmt.Errorf("webhook: encode payload for room %q: %w", rec.RoomName, err)
	}

	ctx, span := observe.StartSpan(ctx, "webhook.deliver")
	defer span.End()

	start := time.Now()
	outcome, err := d.deliverWithRetry(ctx, url, rec.RoomName, body)

	d.metrics.WebhookDuration.Record(ctx, time.Since(start).Seconds())
	d.metrics.WebhookDeliveries.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))

	return err
}

// deliverWithRetry runs the attempt loop and classifies the terminal outcome
// for metrics: "delivered", "rejected", or "exhausted".
func (d *Dispatcher) deliverWithRetry(ctx context.Context, url, roomName string, body []byte) (string, error) {
	backoff := d.initialBackoff
	var lastErr error

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		status, err := d.post(ctx, url, body)

		switch {
		case err == nil && status >= 200 && status < 300:
			slog.Info("webhook delivered",
				"room_name", roomName, "url", url, "attempt", attempt)
			return "delivered", nil

		case err == nil && rejected(status):
			slog.Error("webhook rejected by endpoint",
				"room_name", roomName, "url", url, "status", status)
			return "rejected", fmt.Errorf("webhook: %s answered %d: %w", url, status, ErrRejected)

		case err == nil:
			lastErr = fmt.Errorf("webhook: %s answered %d", url, status)

		default:
			lastErr = fmt.Errorf("webhook: post %s: %w", url, err)
		}

		if attempt == d.maxAttempts {
			break
		}

		slog.Warn("webhook delivery failed, retrying",
			"room_name", roomName, "attempt", attempt, "backoff", backoff, "err", lastErr)
		d.metrics.WebhookRetries.Add(ctx, 1)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "exhausted", fmt.Errorf("webhook: delivery cancelled: %w: %w", ctx.Err(), ErrExhausted)
		}

		backoff *= 2
		if backoff > d.maxBackoff {
			backoff = d.maxBackoff
		}
	}

	slog.Error("webhook delivery failed after all attempts",
		"room_name", roomName, "url", url, "attempts", d.maxAttempts, "err", lastErr)
	return "exhausted", fmt.Errorf("%w after %d attempts: %w", ErrExhausted, d.maxAttempts, lastErr)
}

// post performs one HTTP attempt. A non-nil error means the request never
// produced a response (connection failure, timeout) and is always transient.
func (d *Dispatcher) post(ctx context.Context, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

// rejected reports whether status is a definitive client-side rejection.
// 408 (request timeout) and 429 (rate limited) are transient despite being
// 4xx: the endpoint asked for the request again later.
func rejected(status int) bool {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return false
	}
	return status >= 400 && status < 500
}
