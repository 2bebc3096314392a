// Package session drives the lifecycle of live call sessions: from the
// moment a caller joins a room, through transcript accumulation, to the
// one-shot finalization that assembles the call record, persists it and
// hands it to the webhook dispatcher.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shubhamINT/api-livekit/internal/assistant"
	"github.com/shubhamINT/api-livekit/internal/callrecord"
	"github.com/shubhamINT/api-livekit/internal/observe"
	"github.com/shubhamINT/api-livekit/internal/template"
	"github.com/shubhamINT/api-livekit/internal/transcript"
)

// State is the lifecycle phase of a [Session]. Transitions only move
// forward: CONNECTING → ACTIVE → FINALIZING → TERMINATED, with FAILED as a
// terminal branch out of CONNECTING.
type State int32

const (
	StateConnecting State = iota
	StateActive
	StateFinalizing
	StateTerminated
	StateFailed
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateFinalizing:
		return "finalizing"
	case StateTerminated:
		return "terminated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RecordingResolver locates the recording for a finished call. Lookup is
// best effort; ok is false when no recording could be found.
type RecordingResolver interface {
	Resolve(ctx context.Context, roomName string, endedAt time.Time) (path string, ok bool)
}

// WebhookSender delivers the end-of-call notification.
type WebhookSender interface {
	Deliver(ctx context.Context, url string, rec callrecord.Record) error
}

// CallSaver persists finalized call records.
type CallSaver interface {
	SaveCall(ctx context.Context, rec callrecord.Record) error
}

// Deps bundles the collaborators a session needs. Recordings, Webhooks and
// Calls may be nil; the corresponding finalization step is then skipped.
type Deps struct {
	Assistants *assistant.Resolver
	Recordings RecordingResolver
	Webhooks   WebhookSender
	Calls      CallSaver
	Metrics    *observe.Metrics
}

// Session is the in-memory state of one live call. All methods are safe for
// concurrent use; finalization happens exactly once even when termination
// signals race.
type Session struct {
	roomName string
	metadata map[string]string
	toNumber string

	deps Deps

	state atomic.Int32

	// Populated by connect and immutable afterwards.
	cfg     assistant.Config
	prompt  string
	welcome string

	startedAt time.Time
	entries   *transcript.Aggregator
}

// newSession creates a session in CONNECTING for the given room. metadata
// and toNumber come from the session-established event.
func newSession(roomName string, metadata map[string]string, toNumber string, startedAt time.Time, deps Deps) *Session {
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	s := &Session{
		roomName:  roomName,
		metadata:  metadata,
		toNumber:  toNumber,
		deps:      deps,
		startedAt: startedAt,
		entries:   transcript.New(),
	}
	s.state.Store(int32(StateConnecting))
	return s
}

// State returns the current lifecycle phase.
func (s *Session) State() State { return State(s.state.Load()) }

// RoomName returns the session's room identifier.
func (s *Session) RoomName() string { return s.roomName }

// Prompt returns the rendered system prompt. Empty before the session is
// active.
func (s *Session) Prompt() string { return s.prompt }

// Welcome returns the rendered welcome message. Empty before the session is
// active.
func (s *Session) Welcome() string { return s.welcome }

// connect resolves the assistant for the session's room and renders its
// prompt templates against the caller metadata. On success the session
// becomes ACTIVE; on any failure it becomes FAILED and the error is
// returned.
func (s *Session) connect(ctx context.Context) error {
	start := time.Now()

	cfg, err := s.deps.Assistants.Resolve(ctx, s.roomName)
	if err != nil {
		s.fail("assistant_lookup")
		return fmt.Errorf("session %s: %w", s.roomName, err)
	}
	if !cfg.Active {
		s.fail("assistant_inactive")
		return fmt.Errorf("session %s: assistant %q is inactive", s.roomName, cfg.ID)
	}

	s.cfg = cfg
	s.prompt = template.Render(cfg.Prompt, s.metadata)
	if cfg.StartInstruction != "" {
		s.prompt += "\n\n" + template.Render(cfg.StartInstruction, s.metadata)
	}
	s.welcome = template.Render(cfg.WelcomeMessage, s.metadata)

	s.state.Store(int32(StateActive))
	if m := s.deps.Metrics; m != nil {
		m.SessionSetupDuration.Record(ctx, time.Since(start).Seconds())
	}
	slog.Info("session active",
		"room", s.roomName,
		"assistant_id", cfg.ID,
		"assistant", cfg.Name)
	return nil
}

// HandleTranscript appends one utterance. Events arriving before the
// session is active or after finalization began are dropped, so late
// transcripts never mutate a record that is being assembled.
func (s *Session) HandleTranscript(speaker transcript.Speaker, text string, ts time.Time) {
	if s.State() != StateActive {
		slog.Debug("dropping transcript for non-active session",
			"room", s.roomName,
			"state", s.State().String())
		return
	}
	if !speaker.IsValid() || text == "" {
		return
	}

	s.entries.Append(speaker, text, ts)
	if m := s.deps.Metrics; m != nil {
		m.TranscriptEntries.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("speaker", string(speaker))))
	}
}

// Terminate finalizes the session. The first caller wins the ACTIVE →
// FINALIZING transition and performs the full sequence: transcript
// snapshot, duration computation, recording lookup, record assembly,
// persistence and webhook delivery. Every other caller returns immediately.
// The assembled record is returned by the winning call; losers get a zero
// record and ok=false.
func (s *Session) Terminate(ctx context.Context, endedAt time.Time) (callrecord.Record, bool) {
	if !s.state.CompareAndSwap(int32(StateActive), int32(StateFinalizing)) {
		return callrecord.Record{}, false
	}
	start := time.Now()
	if endedAt.IsZero() {
		endedAt = start
	}

	entries := s.entries.Snapshot()

	rec := callrecord.Record{
		RoomName:        s.roomName,
		AssistantID:     s.cfg.ID,
		AssistantName:   s.cfg.Name,
		ToNumber:        s.toNumber,
		Transcript:      entries,
		StartedAt:       s.startedAt,
		EndedAt:         endedAt,
		DurationMinutes: callrecord.DurationMinutes(s.startedAt, endedAt),
	}

	if s.deps.Recordings != nil {
		if path, ok := s.deps.Recordings.Resolve(ctx, s.roomName, endedAt); ok {
			rec.RecordingPath = path
		}
	}

	if s.deps.Calls != nil {
		if err := s.deps.Calls.SaveCall(ctx, rec); err != nil {
			// Persistence failure must not block the webhook.
			slog.Error("failed to persist call record",
				"room", s.roomName,
				"error", err)
		}
	}

	if s.deps.Webhooks != nil && s.cfg.EndCallURL != "" {
		if err := s.deps.Webhooks.Deliver(ctx, s.cfg.EndCallURL, rec); err != nil {
			slog.Error("end-of-call webhook not delivered",
				"room", s.roomName,
				"url", s.cfg.EndCallURL,
				"error", err)
		}
	}

	s.state.Store(int32(StateTerminated))
	if m := s.deps.Metrics; m != nil {
		m.FinalizeDuration.Record(ctx, time.Since(start).Seconds())
	}
	slog.Info("session terminated",
		"room", s.roomName,
		"duration_minutes", rec.DurationMinutes,
		"transcript_entries", len(rec.Transcript))
	return rec, true
}

// fail marks the session FAILED and counts the failure.
func (s *Session) fail(reason string) {
	s.state.Store(int32(StateFailed))
	if m := s.deps.Metrics; m != nil {
		m.SessionFailures.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("reason", reason)))
	}
}
