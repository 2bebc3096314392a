// Package mock provides an in-memory test double for [assistant.Store].
//
// The mock records every method call for assertion in tests and exposes
// exported fields that control what it returns. It is safe for concurrent
// use via an internal [sync.Mutex].
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/shubhamINT/api-livekit/internal/assistant"
)

// Store is a configurable test double for [assistant.Store].
type Store struct {
	mu sync.Mutex

	// calls records the assistant IDs requested, in order.
	calls []string

	// Assistants maps assistant ID to the config returned for it. IDs not
	// present return an error wrapping [assistant.ErrNotFound].
	Assistants map[string]assistant.Config

	// GetAssistantErr overrides all lookups when non-nil.
	GetAssistantErr error
}

// GetAssistant implements [assistant.Store].
func (m *Store) GetAssistant(_ context.Context, id string) (assistant.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, id)

	if m.GetAssistantErr != nil {
		return assistant.Config{}, m.GetAssistantErr
	}
	cfg, ok := m.Assistants[id]
	if !ok {
		return assistant.Config{}, fmt.Errorf("mock store: %q: %w", id, assistant.ErrNotFound)
	}
	return cfg, nil
}

// Calls returns a copy of all requested assistant IDs.
func (m *Store) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many lookups were performed.
func (m *Store) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
