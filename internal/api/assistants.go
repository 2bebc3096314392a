package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shubhamINT/api-livekit/internal/assistant"
	"github.com/shubhamINT/api-livekit/internal/store"
)

// CreateAssistant handles POST /v1/assistants. The ID may be supplied by the
// caller; when absent one is generated.
func (h *Handler) CreateAssistant(w http.ResponseWriter, r *http.Request) {
	var body assistantBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	cfg := assistant.Config{
		ID:               body.ID,
		Name:             body.Name,
		Description:      body.Description,
		Prompt:           body.Prompt,
		StartInstruction: body.StartInstruction,
		WelcomeMessage:   body.WelcomeMessage,
		TTS:              body.TTS,
		EndCallURL:       body.EndCallURL,
		ToolIDs:          body.ToolIDs,
		OwnerEmail:       body.OwnerEmail,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if body.Active != nil {
		cfg.Active = *body.Active
	}

	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Store.CreateAssistant(r.Context(), cfg); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "assistant already exists")
			return
		}
		slog.Error("create assistant", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create assistant")
		return
	}

	writeSuccess(w, http.StatusCreated, "Assistant created successfully", viewAssistant(cfg))
}

// ListAssistants handles GET /v1/assistants.
func (h *Handler) ListAssistants(w http.ResponseWriter, r *http.Request) {
	configs, err := h.Store.ListAssistants(r.Context())
	if err != nil {
		slog.Error("list assistants", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list assistants")
		return
	}

	views := make([]assistantView, 0, len(configs))
	for _, cfg := range configs {
		views = append(views, viewAssistant(cfg))
	}
	writeSuccess(w, http.StatusOK, "Assistants fetched successfully", views)
}

// GetAssistant handles GET /v1/assistants/{id}.
func (h *Handler) GetAssistant(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cfg, err := h.Store.GetAssistant(r.Context(), id)
	if err != nil {
		if errors.Is(err, assistant.ErrNotFound) {
			writeError(w, http.StatusNotFound, "assistant not found")
			return
		}
		slog.Error("get assistant", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch assistant")
		return
	}
	writeSuccess(w, http.StatusOK, "Assistant fetched successfully", viewAssistant(cfg))
}

// UpdateAssistant handles PUT /v1/assistants/{id}.
func (h *Handler) UpdateAssistant(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body assistantBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.Store.GetAssistant(r.Context(), id)
	if err != nil {
		if errors.Is(err, assistant.ErrNotFound) {
			writeError(w, http.StatusNotFound, "assistant not found")
			return
		}
		slog.Error("get assistant for update", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch assistant")
		return
	}

	cfg := assistant.Config{
		ID:               id,
		Name:             body.Name,
		Description:      body.Description,
		Prompt:           body.Prompt,
		StartInstruction: body.StartInstruction,
		WelcomeMessage:   body.WelcomeMessage,
		TTS:              body.TTS,
		EndCallURL:       body.EndCallURL,
		ToolIDs:          existing.ToolIDs,
		OwnerEmail:       body.OwnerEmail,
		Active:           existing.Active,
		CreatedAt:        existing.CreatedAt,
		UpdatedAt:        time.Now().UTC(),
	}
	if body.ToolIDs != nil {
		cfg.ToolIDs = body.ToolIDs
	}
	if body.Active != nil {
		cfg.Active = *body.Active
	}

	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Store.UpdateAssistant(r.Context(), cfg); err != nil {
		if errors.Is(err, assistant.ErrNotFound) {
			writeError(w, http.StatusNotFound, "assistant not found")
			return
		}
		slog.Error("update assistant", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update assistant")
		return
	}
	writeSuccess(w, http.StatusOK, "Assistant updated successfully", viewAssistant(cfg))
}

// DeleteAssistant handles DELETE /v1/assistants/{id}.
func (h *Handler) DeleteAssistant(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Store.DeleteAssistant(r.Context(), id); err != nil {
		if errors.Is(err, assistant.ErrNotFound) {
			writeError(w, http.StatusNotFound, "assistant not found")
			return
		}
		slog.Error("delete assistant", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete assistant")
		return
	}
	writeSuccess(w, http.StatusOK, "Assistant deleted successfully", nil)
}
