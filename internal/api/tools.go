package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shubhamINT/api-livekit/internal/assistant"
	"github.com/shubhamINT/api-livekit/internal/store"
	"github.com/shubhamINT/api-livekit/internal/tool"
)

// CreateTool handles POST /v1/tools. The ID may be supplied by the caller;
// when absent one is generated.
func (h *Handler) CreateTool(w http.ResponseWriter, r *http.Request) {
	var body toolBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	d := tool.Definition{
		ID:          body.ID,
		Name:        body.Name,
		Description: body.Description,
		Parameters:  body.Parameters,
		Execution:   body.Execution,
		OwnerEmail:  body.OwnerEmail,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}

	if err := d.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Store.CreateTool(r.Context(), d); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "tool already exists")
			return
		}
		slog.Error("create tool", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create tool")
		return
	}

	writeSuccess(w, http.StatusCreated, "Tool created successfully", viewTool(d))
}

// ListTools handles GET /v1/tools.
func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	defs, err := h.Store.ListTools(r.Context())
	if err != nil {
		slog.Error("list tools", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tools")
		return
	}

	views := make([]toolView, 0, len(defs))
	for _, d := range defs {
		views = append(views, viewTool(d))
	}
	writeSuccess(w, http.StatusOK, "Tools retrieved successfully", views)
}

// GetTool handles GET /v1/tools/{id}.
func (h *Handler) GetTool(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, err := h.Store.GetTool(r.Context(), id)
	if err != nil {
		if errors.Is(err, tool.ErrNotFound) {
			writeError(w, http.StatusNotFound, "tool not found")
			return
		}
		slog.Error("get tool", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch tool")
		return
	}
	writeSuccess(w, http.StatusOK, "Tool details retrieved successfully", viewTool(d))
}

// UpdateTool handles PUT /v1/tools/{id}.
func (h *Handler) UpdateTool(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body toolBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.Store.GetTool(r.Context(), id)
	if err != nil {
		if errors.Is(err, tool.ErrNotFound) {
			writeError(w, http.StatusNotFound, "tool not found")
			return
		}
		slog.Error("get tool for update", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch tool")
		return
	}

	d := tool.Definition{
		ID:          id,
		Name:        body.Name,
		Description: body.Description,
		Parameters:  body.Parameters,
		Execution:   body.Execution,
		OwnerEmail:  body.OwnerEmail,
		Active:      true,
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   time.Now().UTC(),
	}

	if err := d.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Store.UpdateTool(r.Context(), d); err != nil {
		if errors.Is(err, tool.ErrNotFound) {
			writeError(w, http.StatusNotFound, "tool not found")
			return
		}
		slog.Error("update tool", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update tool")
		return
	}
	writeSuccess(w, http.StatusOK, "Tool updated successfully", viewTool(d))
}

// DeleteTool handles DELETE /v1/tools/{id}. The tool is deactivated and
// detached from every assistant that references it.
func (h *Handler) DeleteTool(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Store.DeleteTool(r.Context(), id); err != nil {
		if errors.Is(err, tool.ErrNotFound) {
			writeError(w, http.StatusNotFound, "tool not found")
			return
		}
		slog.Error("delete tool", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete tool")
		return
	}
	writeSuccess(w, http.StatusOK, "Tool deleted successfully", nil)
}

// attachToolsBody is the request shape for attach and detach.
type attachToolsBody struct {
	ToolIDs []string `json:"tool_ids"`
}

// attachToolsView is the response shape for attach and detach.
type attachToolsView struct {
	AssistantID string   `json:"assistant_id"`
	ToolIDs     []string `json:"tool_ids"`
}

// AttachTools handles POST /v1/assistants/{id}/tools/attach.
func (h *Handler) AttachTools(w http.ResponseWriter, r *http.Request) {
	assistantID := r.PathValue("id")

	var body attachToolsBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(body.ToolIDs) == 0 {
		writeError(w, http.StatusBadRequest, "tool_ids must not be empty")
		return
	}

	attached, err := h.Store.AttachTools(r.Context(), assistantID, body.ToolIDs)
	if err != nil {
		switch {
		case errors.Is(err, assistant.ErrNotFound):
			writeError(w, http.StatusNotFound, "assistant not found")
		case errors.Is(err, tool.ErrNotFound):
			writeError(w, http.StatusNotFound, "one or more tools not found")
		default:
			slog.Error("attach tools", "assistant_id", assistantID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to attach tools")
		}
		return
	}

	writeSuccess(w, http.StatusOK,
		fmt.Sprintf("Attached %d tool(s) to assistant", len(body.ToolIDs)),
		attachToolsView{AssistantID: assistantID, ToolIDs: attached})
}

// DetachTools handles POST /v1/assistants/{id}/tools/detach.
func (h *Handler) DetachTools(w http.ResponseWriter, r *http.Request) {
	assistantID := r.PathValue("id")

	var body attachToolsBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(body.ToolIDs) == 0 {
		writeError(w, http.StatusBadRequest, "tool_ids must not be empty")
		return
	}

	remaining, err := h.Store.DetachTools(r.Context(), assistantID, body.ToolIDs)
	if err != nil {
		if errors.Is(err, assistant.ErrNotFound) {
			writeError(w, http.StatusNotFound, "assistant not found")
			return
		}
		slog.Error("detach tools", "assistant_id", assistantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to detach tools")
		return
	}

	writeSuccess(w, http.StatusOK, "Detached tool(s) from assistant",
		attachToolsView{AssistantID: assistantID, ToolIDs: remaining})
}
