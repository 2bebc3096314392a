package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shubhamINT/api-livekit/internal/assistant"
	"github.com/shubhamINT/api-livekit/internal/assistant/mock"
	"github.com/shubhamINT/api-livekit/internal/callrecord"
	"github.com/shubhamINT/api-livekit/internal/transcript"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

type mockSender struct {
	mu    sync.Mutex
	urls  []string
	recs  []callrecord.Record
	err   error
}

func (m *mockSender) Deliver(_ context.Context, url string, rec callrecord.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append(m.urls, url)
	m.recs = append(m.recs, rec)
	return m.err
}

func (m *mockSender) deliveries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

type mockSaver struct {
	mu   sync.Mutex
	recs []callrecord.Record
	err  error
}

func (m *mockSaver) SaveCall(_ context.Context, rec callrecord.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return m.err
}

func (m *mockSaver) saved() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

type mockRecordings struct {
	path string
	ok   bool
}

func (m *mockRecordings) Resolve(_ context.Context, _ string, _ time.Time) (string, bool) {
	return m.path, m.ok
}

func activeAssistant() assistant.Config {
	return assistant.Config{
		ID:             "asst-1",
		Name:           "Support Bot",
		Prompt:         "You are helping {{name}}.",
		WelcomeMessage: "Hello {{name}}!",
		EndCallURL:     "https://crm.example.com/hooks/call-ended",
		Active:         true,
	}
}

func newTestDeps(store *mock.Store, sender *mockSender, saver *mockSaver, rec *mockRecordings) Deps {
	d := Deps{Assistants: assistant.NewResolver(store)}
	if sender != nil {
		d.Webhooks = sender
	}
	if saver != nil {
		d.Calls = saver
	}
	if rec != nil {
		d.Recordings = rec
	}
	return d
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestConnectRendersTemplates(t *testing.T) {
	t.Parallel()

	store := &mock.Store{Assistants: map[string]assistant.Config{"asst-1": activeAssistant()}}
	s := newSession("asst-1_ab12cd34", map[string]string{"name": "John"}, "+15550001111", time.Now(), newTestDeps(store, nil, nil, nil))

	if err := s.connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if got := s.State(); got != StateActive {
		t.Errorf("State() = %v, want %v", got, StateActive)
	}
	if s.Prompt() != "You are helping John." {
		t.Errorf("Prompt() = %q", s.Prompt())
	}
	if s.Welcome() != "Hello John!" {
		t.Errorf("Welcome() = %q", s.Welcome())
	}
}

func TestConnectAppendsStartInstruction(t *testing.T) {
	t.Parallel()

	cfg := activeAssistant()
	cfg.StartInstruction = "Greet {{name}} first."
	store := &mock.Store{Assistants: map[string]assistant.Config{"asst-1": cfg}}
	s := newSession("asst-1_x", map[string]string{"name": "John"}, "", time.Now(), newTestDeps(store, nil, nil, nil))

	if err := s.connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	want := "You are helping John.\n\nGreet John first."
	if s.Prompt() != want {
		t.Errorf("Prompt() = %q, want %q", s.Prompt(), want)
	}
}

func TestConnectUnknownAssistantFails(t *testing.T) {
	t.Parallel()

	store := &mock.Store{}
	sender := &mockSender{}
	s := newSession("ghost_x", nil, "", time.Now(), newTestDeps(store, sender, nil, nil))

	if err := s.connect(context.Background()); err == nil {
		t.Fatal("connect should fail for unknown assistant")
	}
	if got := s.State(); got != StateFailed {
		t.Errorf("State() = %v, want %v", got, StateFailed)
	}

	// A failed session must never finalize or invoke the webhook.
	if _, ok := s.Terminate(context.Background(), time.Now()); ok {
		t.Error("Terminate() on failed session should not win the transition")
	}
	if sender.deliveries() != 0 {
		t.Errorf("webhook delivered %d times for failed session, want 0", sender.deliveries())
	}
}

func TestConnectInactiveAssistantFails(t *testing.T) {
	t.Parallel()

	cfg := activeAssistant()
	cfg.Active = false
	store := &mock.Store{Assistants: map[string]assistant.Config{"asst-1": cfg}}
	s := newSession("asst-1_x", nil, "", time.Now(), newTestDeps(store, nil, nil, nil))

	if err := s.connect(context.Background()); err == nil {
		t.Fatal("connect should fail for inactive assistant")
	}
	if got := s.State(); got != StateFailed {
		t.Errorf("State() = %v, want %v", got, StateFailed)
	}
}

func TestTranscriptDroppedOutsideActive(t *testing.T) {
	t.Parallel()

	store := &mock.Store{Assistants: map[string]assistant.Config{"asst-1": activeAssistant()}}
	saver := &mockSaver{}
	s := newSession("asst-1_x", nil, "", time.Now(), newTestDeps(store, nil, saver, nil))

	// Before connect: dropped.
	s.HandleTranscript(transcript.SpeakerUser, "too early", time.Now())

	if err := s.connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	s.HandleTranscript(transcript.SpeakerAgent, "Hello!", time.Now())

	if _, ok := s.Terminate(context.Background(), time.Now()); !ok {
		t.Fatal("Terminate should win the transition")
	}

	// After finalization: dropped.
	s.HandleTranscript(transcript.SpeakerUser, "too late", time.Now())

	if saver.saved() != 1 {
		t.Fatalf("saved %d records, want 1", saver.saved())
	}
	got := saver.recs[0].Transcript
	if len(got) != 1 || got[0].Text != "Hello!" {
		t.Errorf("Transcript = %+v, want only the in-session utterance", got)
	}
}

func TestTerminateAssemblesRecord(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ended := started.Add(90 * time.Second)

	store := &mock.Store{Assistants: map[string]assistant.Config{"asst-1": activeAssistant()}}
	sender := &mockSender{}
	saver := &mockSaver{}
	recordings := &mockRecordings{path: "https://bucket.s3.amazonaws.com/2026-03-01/asst-1_x.ogg", ok: true}
	s := newSession("asst-1_x", map[string]string{"name": "John"}, "+15550001111", started, newTestDeps(store, sender, saver, recordings))

	if err := s.connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	s.HandleTranscript(transcript.SpeakerAgent, "Hello John!", started.Add(time.Second))
	s.HandleTranscript(transcript.SpeakerUser, "Hi.", started.Add(5*time.Second))

	rec, ok := s.Terminate(context.Background(), ended)
	if !ok {
		t.Fatal("Terminate should win the transition")
	}
	if got := s.State(); got != StateTerminated {
		t.Errorf("State() = %v, want %v", got, StateTerminated)
	}

	if rec.RoomName != "asst-1_x" || rec.AssistantID != "asst-1" || rec.AssistantName != "Support Bot" {
		t.Errorf("record identity = %+v", rec)
	}
	if rec.ToNumber != "+15550001111" {
		t.Errorf("ToNumber = %q", rec.ToNumber)
	}
	if rec.RecordingPath != recordings.path {
		t.Errorf("RecordingPath = %q, want %q", rec.RecordingPath, recordings.path)
	}
	if rec.DurationMinutes != 1.5 {
		t.Errorf("DurationMinutes = %v, want 1.5", rec.DurationMinutes)
	}
	if len(rec.Transcript) != 2 || rec.Transcript[0].Speaker != transcript.SpeakerAgent {
		t.Errorf("Transcript = %+v", rec.Transcript)
	}

	if saver.saved() != 1 {
		t.Errorf("saved %d records, want 1", saver.saved())
	}
	if sender.deliveries() != 1 {
		t.Fatalf("delivered %d webhooks, want 1", sender.deliveries())
	}
	if sender.urls[0] != "https://crm.example.com/hooks/call-ended" {
		t.Errorf("webhook url = %q", sender.urls[0])
	}
}

func TestTerminateExactlyOnce(t *testing.T) {
	t.Parallel()

	store := &mock.Store{Assistants: map[string]assistant.Config{"asst-1": activeAssistant()}}
	sender := &mockSender{}
	s := newSession("asst-1_x", nil, "", time.Now(), newTestDeps(store, sender, nil, nil))
	if err := s.connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	const racers = 16
	var won int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.Terminate(context.Background(), time.Now()); ok {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if won != 1 {
		t.Errorf("%d racers won the finalization transition, want exactly 1", won)
	}
	if sender.deliveries() != 1 {
		t.Errorf("delivered %d webhooks, want exactly 1", sender.deliveries())
	}
}

func TestTerminateNoWebhookWithoutURL(t *testing.T) {
	t.Parallel()

	cfg := activeAssistant()
	cfg.EndCallURL = ""
	store := &mock.Store{Assistants: map[string]assistant.Config{"asst-1": cfg}}
	sender := &mockSender{}
	s := newSession("asst-1_x", nil, "", time.Now(), newTestDeps(store, sender, nil, nil))
	if err := s.connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if _, ok := s.Terminate(context.Background(), time.Now()); !ok {
		t.Fatal("Terminate should win the transition")
	}
	if sender.deliveries() != 0 {
		t.Errorf("delivered %d webhooks, want 0 when no end-call URL is set", sender.deliveries())
	}
}

func TestPersistenceFailureStillDeliversWebhook(t *testing.T) {
	t.Parallel()

	store := &mock.Store{Assistants: map[string]assistant.Config{"asst-1": activeAssistant()}}
	sender := &mockSender{}
	saver := &mockSaver{err: context.DeadlineExceeded}
	s := newSession("asst-1_x", nil, "", time.Now(), newTestDeps(store, sender, saver, nil))
	if err := s.connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if _, ok := s.Terminate(context.Background(), time.Now()); !ok {
		t.Fatal("Terminate should win the transition")
	}
	if sender.deliveries() != 1 {
		t.Errorf("delivered %d webhooks, want 1 despite persistence failure", sender.deliveries())
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{StateConnecting, "connecting"},
		{StateActive, "active"},
		{StateFinalizing, "finalizing"},
		{StateTerminated, "terminated"},
		{StateFailed, "failed"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
