// Package assistant defines the assistant configuration model and the
// resolver that maps a live room to its assistant.
//
// An assistant is a named, reusable configuration (prompt, TTS voice,
// end-of-call webhook URL) applied to a call session. The session loads its
// assistant exactly once at connect time and treats the result as an
// immutable snapshot; updates through the management API create a new
// version that only future sessions observe.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no assistant matches a requested ID. It is
// fatal to the session that triggered the lookup: without an assistant there
// is no prompt to run and no end-call URL to notify.
var ErrNotFound = errors.New("assistant not found")

// TTSProvider selects the speech-synthesis backend for an assistant.
type TTSProvider string

const (
	// TTSCartesia selects Cartesia, addressed by voice ID.
	TTSCartesia TTSProvider = "cartesia"

	// TTSSarvam selects Sarvam, addressed by speaker name plus target
	// language code.
	TTSSarvam TTSProvider = "sarvam"
)

// IsValid reports whether p is a recognised TTS provider.
func (p TTSProvider) IsValid() bool {
	return p == TTSCartesia || p == TTSSarvam
}

// CartesiaTTS carries the parameters of the Cartesia variant.
type CartesiaTTS struct {
	VoiceID string `json:"voice_id" yaml:"voice_id"`
}

// SarvamTTS carries the parameters of the Sarvam variant.
type SarvamTTS struct {
	Speaker            string `json:"speaker" yaml:"speaker"`
	TargetLanguageCode string `json:"target_language_code" yaml:"target_language_code"`
}

// TTSConfig is a tagged two-variant selector. Exactly one of Cartesia or
// Sarvam is set, matching Provider. The variants are mutually exclusive and
// selected explicitly rather than via polymorphic dispatch.
type TTSConfig struct {
	Provider TTSProvider  `json:"provider" yaml:"provider"`
	Cartesia *CartesiaTTS `json:"cartesia,omitempty" yaml:"cartesia,omitempty"`
	Sarvam   *SarvamTTS   `json:"sarvam,omitempty" yaml:"sarvam,omitempty"`
}

// Validate checks that exactly the variant named by Provider is populated.
func (t TTSConfig) Validate() error {
	switch t.Provider {
	case TTSCartesia:
		if t.Cartesia == nil || t.Cartesia.VoiceID == "" {
			return errors.New("tts: cartesia variant requires voice_id")
		}
		if t.Sarvam != nil {
			return errors.New("tts: cartesia variant must not carry sarvam parameters")
		}
	case TTSSarvam:
		if t.Sarvam == nil || t.Sarvam.Speaker == "" {
			return errors.New("tts: sarvam variant requires speaker")
		}
		if t.Sarvam.TargetLanguageCode == "" {
			return errors.New("tts: sarvam variant requires target_language_code")
		}
		if t.Cartesia != nil {
			return errors.New("tts: sarvam variant must not carry cartesia parameters")
		}
	default:
		return fmt.Errorf("tts: unknown provider %q", t.Provider)
	}
	return nil
}

// Config is the immutable per-session snapshot of an assistant.
type Config struct {
	// ID is the unique assistant identifier.
	ID string

	// Name is the display name.
	Name string

	// Description is an optional free-text description.
	Description string

	// Prompt is the system prompt template. May contain {{key}}
	// placeholders resolved against session metadata.
	Prompt string

	// StartInstruction is the template for the assistant's opening turn.
	// May contain {{key}} placeholders.
	StartInstruction string

	// WelcomeMessage is an optional fixed greeting spoken verbatim when no
	// start instruction is configured.
	WelcomeMessage string

	// TTS selects the speech-synthesis engine variant.
	TTS TTSConfig

	// EndCallURL, when non-empty, receives the final call record via
	// webhook after the session terminates.
	EndCallURL string

	// ToolIDs lists the function tools attached to this assistant. The
	// agent runtime resolves them when a session starts.
	ToolIDs []string

	// OwnerEmail identifies who created the assistant.
	OwnerEmail string

	// Active marks whether the assistant may take new sessions.
	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks that cfg is coherent enough to drive a session.
func (c Config) Validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("assistant: id must not be empty"))
	}
	if c.Name == "" {
		errs = append(errs, errors.New("assistant: name must not be empty"))
	}
	if c.Prompt == "" {
		errs = append(errs, errors.New("assistant: prompt must not be empty"))
	}
	if err := c.TTS.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("assistant: %w", err))
	}
	return errors.Join(errs...)
}

// Store is the persistence collaborator the resolver reads assistants from.
// Implementations must be safe for concurrent use across sessions.
type Store interface {
	// GetAssistant returns the assistant with the given ID, or an error
	// wrapping [ErrNotFound] when no such assistant exists.
	GetAssistant(ctx context.Context, id string) (Config, error)
}
