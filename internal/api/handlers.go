// Package api implements the management HTTP API: assistant CRUD, SIP trunk
// provisioning, outbound call placement and call record retrieval. All
// responses share the {success, message, data} envelope.
package api

import (
	"context"
	"time"

	"github.com/shubhamINT/api-livekit/internal/assistant"
	"github.com/shubhamINT/api-livekit/internal/callrecord"
	"github.com/shubhamINT/api-livekit/internal/store"
	"github.com/shubhamINT/api-livekit/internal/tool"
	"github.com/shubhamINT/api-livekit/internal/transport"
)

// CallPlacer is the slice of the LiveKit client the API uses to provision
// trunks and place outbound calls. *transport.Client satisfies it.
type CallPlacer interface {
	CreateRoom(ctx context.Context, name, metadata string) (transport.Room, error)
	CreateAgentDispatch(ctx context.Context, room, metadata string) (transport.AgentDispatch, error)
	CreateSIPOutboundTrunk(ctx context.Context, name, address string, numbers []string, authUser, authPass string) (transport.SIPOutboundTrunk, error)
	CreateSIPParticipant(ctx context.Context, trunkID, room, toNumber string) (transport.SIPParticipant, error)
}

// Handler carries the API's collaborators.
type Handler struct {
	Store   store.Store
	LiveKit CallPlacer
}

// ---------------------------------------------------------------------------
// Wire representations
// ---------------------------------------------------------------------------

// assistantBody is the request shape shared by create and update.
type assistantBody struct {
	ID               string              `json:"id,omitempty"`
	Name             string              `json:"name"`
	Description      string              `json:"description,omitempty"`
	Prompt           string              `json:"prompt"`
	StartInstruction string              `json:"start_instruction,omitempty"`
	WelcomeMessage   string              `json:"welcome_message,omitempty"`
	TTS              assistant.TTSConfig `json:"tts"`
	EndCallURL       string              `json:"end_call_url,omitempty"`
	ToolIDs          []string            `json:"tool_ids,omitempty"`
	OwnerEmail       string              `json:"owner_email,omitempty"`
	Active           *bool               `json:"active,omitempty"`
}

// assistantView is the response shape for assistants.
type assistantView struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Description      string              `json:"description,omitempty"`
	Prompt           string              `json:"prompt"`
	StartInstruction string              `json:"start_instruction,omitempty"`
	WelcomeMessage   string              `json:"welcome_message,omitempty"`
	TTS              assistant.TTSConfig `json:"tts"`
	EndCallURL       string              `json:"end_call_url,omitempty"`
	ToolIDs          []string            `json:"tool_ids"`
	OwnerEmail       string              `json:"owner_email,omitempty"`
	Active           bool                `json:"active"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func viewAssistant(cfg assistant.Config) assistantView {
	if cfg.ToolIDs == nil {
		cfg.ToolIDs = []string{}
	}
	return assistantView{
		ID:               cfg.ID,
		Name:             cfg.Name,
		Description:      cfg.Description,
		Prompt:           cfg.Prompt,
		StartInstruction: cfg.StartInstruction,
		WelcomeMessage:   cfg.WelcomeMessage,
		TTS:              cfg.TTS,
		EndCallURL:       cfg.EndCallURL,
		ToolIDs:          cfg.ToolIDs,
		OwnerEmail:       cfg.OwnerEmail,
		Active:           cfg.Active,
		CreatedAt:        cfg.CreatedAt,
		UpdatedAt:        cfg.UpdatedAt,
	}
}

// toolBody is the request shape shared by tool create and update.
type toolBody struct {
	ID          string           `json:"id,omitempty"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  []tool.Parameter `json:"parameters,omitempty"`
	Execution   tool.Execution   `json:"execution"`
	OwnerEmail  string           `json:"owner_email,omitempty"`
}

// toolView is the response shape for tools.
type toolView struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  []tool.Parameter `json:"parameters"`
	Execution   tool.Execution   `json:"execution"`
	OwnerEmail  string           `json:"owner_email,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func viewTool(d tool.Definition) toolView {
	if d.Parameters == nil {
		d.Parameters = []tool.Parameter{}
	}
	return toolView{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Parameters:  d.Parameters,
		Execution:   d.Execution,
		OwnerEmail:  d.OwnerEmail,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// trunkView is the response shape for SIP trunks.
type trunkView struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	LiveKitTrunkID string    `json:"livekit_trunk_id"`
	PhoneNumber    string    `json:"phone_number"`
	CreatedAt      time.Time `json:"created_at"`
}

func viewTrunk(t store.Trunk) trunkView {
	return trunkView{
		ID:             t.ID,
		Name:           t.Name,
		LiveKitTrunkID: t.LiveKitTrunkID,
		PhoneNumber:    t.PhoneNumber,
		CreatedAt:      t.CreatedAt,
	}
}

// callView is the response shape for finished calls. Transcript entries use
// the same field names as the end-of-call webhook.
type callView struct {
	RoomName        string               `json:"room_name"`
	AssistantID     string               `json:"assistant_id"`
	AssistantName   string               `json:"assistant_name,omitempty"`
	ToNumber        string               `json:"to_number,omitempty"`
	RecordingPath   *string              `json:"recording_path"`
	Transcript      []callTranscriptItem `json:"transcripts"`
	StartedAt       time.Time            `json:"started_at"`
	EndedAt         time.Time            `json:"ended_at"`
	DurationMinutes float64              `json:"call_duration_minutes"`
}

type callTranscriptItem struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func viewCall(rec callrecord.Record) callView {
	v := callView{
		RoomName:        rec.RoomName,
		AssistantID:     rec.AssistantID,
		AssistantName:   rec.AssistantName,
		ToNumber:        rec.ToNumber,
		Transcript:      make([]callTranscriptItem, 0, len(rec.Transcript)),
		StartedAt:       rec.StartedAt,
		EndedAt:         rec.EndedAt,
		DurationMinutes: rec.DurationMinutes,
	}
	if rec.RecordingPath != "" {
		v.RecordingPath = &rec.RecordingPath
	}
	for _, e := range rec.Transcript {
		v.Transcript = append(v.Transcript, callTranscriptItem{
			Speaker:   string(e.Speaker),
			Text:      e.Text,
			Timestamp: e.Timestamp,
		})
	}
	return v
}
