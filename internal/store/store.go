// Package store defines the persistence interfaces for assistants, SIP
// trunks and completed call records. The PostgreSQL implementation lives in
// the postgres subpackage.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shubhamINT/api-livekit/internal/assistant"
	"github.com/shubhamINT/api-livekit/internal/callrecord"
	"github.com/shubhamINT/api-livekit/internal/tool"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned when a create would violate a uniqueness
// constraint, e.g. re-creating an assistant with an existing ID.
var ErrConflict = errors.New("store: already exists")

// Trunk is a provisioned SIP outbound trunk. LiveKitTrunkID references the
// trunk object created on the LiveKit server; the rest is bookkeeping.
type Trunk struct {
	ID             string
	Name           string
	LiveKitTrunkID string
	PhoneNumber    string
	CreatedAt      time.Time
}

// CallFilter narrows a [CallStore.ListCalls] query. Zero values mean "no
// constraint".
type CallFilter struct {
	// AssistantID restricts results to calls handled by one assistant.
	AssistantID string

	// Limit caps the number of records returned, newest first.
	Limit int
}

// AssistantStore persists assistant configurations.
type AssistantStore interface {
	CreateAssistant(ctx context.Context, cfg assistant.Config) error
	GetAssistant(ctx context.Context, id string) (assistant.Config, error)
	ListAssistants(ctx context.Context) ([]assistant.Config, error)
	UpdateAssistant(ctx context.Context, cfg assistant.Config) error
	DeleteAssistant(ctx context.Context, id string) error
}

// TrunkStore persists SIP trunk records.
type TrunkStore interface {
	CreateTrunk(ctx context.Context, t Trunk) error
	ListTrunks(ctx context.Context) ([]Trunk, error)
}

// ToolStore persists function-tool definitions and their assistant
// attachments. Deletion is soft: deleted tools disappear from lookups and
// are detached from every assistant that referenced them.
type ToolStore interface {
	CreateTool(ctx context.Context, d tool.Definition) error

	// GetTool returns the active tool with the given ID, or an error
	// wrapping [tool.ErrNotFound].
	GetTool(ctx context.Context, id string) (tool.Definition, error)

	// ListTools returns all active tools, newest first.
	ListTools(ctx context.Context) ([]tool.Definition, error)

	UpdateTool(ctx context.Context, d tool.Definition) error
	DeleteTool(ctx context.Context, id string) error

	// AttachTools adds toolIDs to the assistant's attachment list, skipping
	// duplicates, and returns the resulting list. Every ID must name an
	// active tool; unknown IDs fail the whole call with [tool.ErrNotFound].
	AttachTools(ctx context.Context, assistantID string, toolIDs []string) ([]string, error)

	// DetachTools removes toolIDs from the assistant's attachment list and
	// returns the resulting list. Unknown IDs are ignored.
	DetachTools(ctx context.Context, assistantID string, toolIDs []string) ([]string, error)
}

// CallStore persists completed call records.
type CallStore interface {
	// SaveCall writes a finalized call record. Saving the same
	// (room name, end timestamp) pair twice is a no-op, so retried
	// finalization does not duplicate rows.
	SaveCall(ctx context.Context, rec callrecord.Record) error

	ListCalls(ctx context.Context, f CallFilter) ([]callrecord.Record, error)
}

// Store combines all persistence concerns behind one interface.
type Store interface {
	AssistantStore
	TrunkStore
	ToolStore
	CallStore
}
