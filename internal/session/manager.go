package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shubhamINT/api-livekit/internal/transcript"
	"github.com/shubhamINT/api-livekit/internal/transport"
)

// Manager owns all live sessions and demultiplexes the agent event feed
// into them. Session setup runs inline so transcript events observed after
// session-established always find their session; finalization runs in the
// background because webhook delivery may retry for a while.
type Manager struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session

	wg sync.WaitGroup
}

// NewManager creates a Manager with no active sessions.
func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Run consumes events until the channel closes or ctx is cancelled, then
// finalizes any sessions still active and waits for in-flight finalizations
// to finish.
func (m *Manager) Run(ctx context.Context, events <-chan transport.Event) error {
	defer m.drain()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			m.dispatch(ctx, ev)
		}
	}
}

func (m *Manager) dispatch(ctx context.Context, ev transport.Event) {
	switch ev.Type {
	case transport.EventSessionEstablished:
		m.startSession(ctx, ev)
	case transport.EventTranscript:
		m.routeTranscript(ev)
	case transport.EventSessionEnded:
		m.StopSession(ev.RoomName, ev.Timestamp)
	default:
		slog.Warn("ignoring unknown feed event type", "type", ev.Type, "room", ev.RoomName)
	}
}

func (m *Manager) startSession(ctx context.Context, ev transport.Event) {
	m.mu.Lock()
	if _, exists := m.sessions[ev.RoomName]; exists {
		m.mu.Unlock()
		slog.Warn("duplicate session-established event", "room", ev.RoomName)
		return
	}
	s := newSession(ev.RoomName, ev.Metadata, ev.ToNumber, ev.Timestamp, m.deps)
	m.sessions[ev.RoomName] = s
	m.mu.Unlock()

	if err := s.connect(ctx); err != nil {
		slog.Error("session setup failed", "room", ev.RoomName, "error", err)
		m.remove(ev.RoomName)
		return
	}
	if met := m.deps.Metrics; met != nil {
		met.ActiveSessions.Add(ctx, 1)
	}
}

func (m *Manager) routeTranscript(ev transport.Event) {
	m.mu.Lock()
	s := m.sessions[ev.RoomName]
	m.mu.Unlock()
	if s == nil {
		slog.Debug("dropping transcript for unknown room", "room", ev.RoomName)
		return
	}
	s.HandleTranscript(transcript.Speaker(ev.Speaker), ev.Text, ev.Timestamp)
}

// StopSession finalizes the session for roomName, if one is active. The
// finalization sequence runs in the background; duplicate stop requests for
// the same room are no-ops thanks to the session's one-shot transition.
func (m *Manager) StopSession(roomName string, endedAt time.Time) {
	m.mu.Lock()
	s := m.sessions[roomName]
	delete(m.sessions, roomName)
	m.mu.Unlock()
	if s == nil {
		slog.Debug("stop requested for unknown room", "room", roomName)
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if _, ok := s.Terminate(context.Background(), endedAt); ok {
			if met := m.deps.Metrics; met != nil {
				met.ActiveSessions.Add(context.Background(), -1)
			}
		}
	}()
}

// Active returns the number of sessions currently tracked.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// remove drops a session that never became active.
func (m *Manager) remove(roomName string) {
	m.mu.Lock()
	delete(m.sessions, roomName)
	m.mu.Unlock()
}

// drain finalizes every remaining session and waits for background
// finalizations to complete.
func (m *Manager) drain() {
	m.mu.Lock()
	remaining := make([]string, 0, len(m.sessions))
	for room := range m.sessions {
		remaining = append(remaining, room)
	}
	m.mu.Unlock()

	for _, room := range remaining {
		slog.Info("finalizing session on shutdown", "room", room)
		m.StopSession(room, time.Now())
	}
	m.wg.Wait()
}
