package assistant_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shubhamINT/api-livekit/internal/assistant"
	"github.com/shubhamINT/api-livekit/internal/assistant/mock"
)

func testConfig(id string) assistant.Config {
	return assistant.Config{
		ID:     id,
		Name:   "Support Bot",
		Prompt: "You are a helpful assistant.",
		TTS: assistant.TTSConfig{
			Provider: assistant.TTSCartesia,
			Cartesia: &assistant.CartesiaTTS{VoiceID: "voice-1"},
		},
		Active: true,
	}
}

func TestIDFromRoomName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		room string
		want string
	}{
		{"abc123_9f8e7d6c", "abc123"},
		{"abc123", "abc123"},
		{"abc123_with_many_parts", "abc123"},
		{"_dangling", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := assistant.IDFromRoomName(tt.room); got != tt.want {
			t.Errorf("IDFromRoomName(%q) = %q, want %q", tt.room, got, tt.want)
		}
	}
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	store := &mock.Store{
		Assistants: map[string]assistant.Config{
			"abc123": testConfig("abc123"),
		},
	}
	r := assistant.NewResolver(store)

	cfg, err := r.Resolve(context.Background(), "abc123_9f8e7d6c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ID != "abc123" {
		t.Errorf("resolved wrong assistant: %q", cfg.ID)
	}
	if store.CallCount() != 1 {
		t.Errorf("expected 1 store lookup, got %d", store.CallCount())
	}
}

func TestResolver_NotFound(t *testing.T) {
	t.Parallel()

	r := assistant.NewResolver(&mock.Store{})

	_, err := r.Resolve(context.Background(), "missing_abcd1234")
	if !errors.Is(err, assistant.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolver_EmptyAssistantID(t *testing.T) {
	t.Parallel()

	store := &mock.Store{}
	r := assistant.NewResolver(store)

	_, err := r.Resolve(context.Background(), "_suffix-only")
	if !errors.Is(err, assistant.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if store.CallCount() != 0 {
		t.Errorf("store should not be queried for an empty assistant id")
	}
}
