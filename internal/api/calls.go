package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shubhamINT/api-livekit/internal/assistant"
	"github.com/shubhamINT/api-livekit/internal/store"
	"github.com/shubhamINT/api-livekit/internal/transport"
)

// outboundCallBody is the request shape for placing an outbound call.
type outboundCallBody struct {
	AssistantID string            `json:"assistant_id"`
	TrunkID     string            `json:"trunk_id"`
	ToNumber    string            `json:"to_number"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// outboundCallView is the response shape for a placed call.
type outboundCallView struct {
	RoomName      string `json:"room_name"`
	DispatchID    string `json:"dispatch_id"`
	ParticipantID string `json:"participant_id"`
}

// PlaceOutboundCall handles POST /v1/calls/outbound. It creates the room,
// dispatches the agent into it and dials the callee through the trunk. The
// room name carries the assistant ID so the agent worker can resolve the
// assistant when the session establishes.
func (h *Handler) PlaceOutboundCall(w http.ResponseWriter, r *http.Request) {
	var body outboundCallBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.AssistantID == "" || body.TrunkID == "" || body.ToNumber == "" {
		writeError(w, http.StatusBadRequest, "assistant_id, trunk_id and to_number are required")
		return
	}

	cfg, err := h.Store.GetAssistant(r.Context(), body.AssistantID)
	if err != nil {
		if errors.Is(err, assistant.ErrNotFound) {
			writeError(w, http.StatusNotFound, "assistant not found")
			return
		}
		slog.Error("get assistant for call", "id", body.AssistantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch assistant")
		return
	}
	if !cfg.Active {
		writeError(w, http.StatusConflict, "assistant is inactive")
		return
	}

	meta, err := json.Marshal(map[string]any{
		"assistant_id": cfg.ID,
		"to_number":    body.ToNumber,
		"metadata":     body.Metadata,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid metadata")
		return
	}

	roomName := transport.NewRoomName(cfg.ID)
	if _, err := h.LiveKit.CreateRoom(r.Context(), roomName, string(meta)); err != nil {
		slog.Error("create room", "room", roomName, "error", err)
		writeError(w, http.StatusBadGateway, "failed to create room")
		return
	}

	dispatch, err := h.LiveKit.CreateAgentDispatch(r.Context(), roomName, string(meta))
	if err != nil {
		slog.Error("create agent dispatch", "room", roomName, "error", err)
		writeError(w, http.StatusBadGateway, "failed to dispatch agent")
		return
	}

	participant, err := h.LiveKit.CreateSIPParticipant(r.Context(), body.TrunkID, roomName, body.ToNumber)
	if err != nil {
		slog.Error("dial sip participant",
			"room", roomName,
			"to_number", body.ToNumber,
			"error", err)
		writeError(w, http.StatusBadGateway, "failed to dial number")
		return
	}

	slog.Info("outbound call placed",
		"room", roomName,
		"assistant_id", cfg.ID,
		"to_number", body.ToNumber)
	writeSuccess(w, http.StatusCreated, "Call placed successfully", outboundCallView{
		RoomName:      roomName,
		DispatchID:    dispatch.ID,
		ParticipantID: participant.ParticipantID,
	})
}

// ListCalls handles GET /v1/calls with optional assistant_id and limit
// query parameters.
func (h *Handler) ListCalls(w http.ResponseWriter, r *http.Request) {
	filter := store.CallFilter{
		AssistantID: r.URL.Query().Get("assistant_id"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	records, err := h.Store.ListCalls(r.Context(), filter)
	if err != nil {
		slog.Error("list calls", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list calls")
		return
	}

	views := make([]callView, 0, len(records))
	for _, rec := range records {
		views = append(views, viewCall(rec))
	}
	writeSuccess(w, http.StatusOK, "Call details fetched successfully", views)
}
