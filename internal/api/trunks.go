package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shubhamINT/api-livekit/internal/store"
)

// trunkBody is the request shape for trunk creation.
type trunkBody struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	Numbers      []string `json:"numbers"`
	AuthUsername string   `json:"auth_username,omitempty"`
	AuthPassword string   `json:"auth_password,omitempty"`
}

// CreateTrunk handles POST /v1/trunks: it provisions the trunk on the
// LiveKit server, then records it locally.
func (h *Handler) CreateTrunk(w http.ResponseWriter, r *http.Request) {
	var body trunkBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Name == "" || body.Address == "" || len(body.Numbers) == 0 {
		writeError(w, http.StatusBadRequest, "name, address and at least one number are required")
		return
	}

	created, err := h.LiveKit.CreateSIPOutboundTrunk(r.Context(),
		body.Name, body.Address, body.Numbers, body.AuthUsername, body.AuthPassword)
	if err != nil {
		slog.Error("create sip trunk", "name", body.Name, "error", err)
		writeError(w, http.StatusBadGateway, "failed to provision trunk")
		return
	}

	trunk := store.Trunk{
		ID:             uuid.NewString(),
		Name:           body.Name,
		LiveKitTrunkID: created.SIPTrunkID,
		PhoneNumber:    body.Numbers[0],
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.Store.CreateTrunk(r.Context(), trunk); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "trunk already exists")
			return
		}
		slog.Error("persist sip trunk", "name", body.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save trunk")
		return
	}

	writeSuccess(w, http.StatusCreated, "Trunk created successfully", viewTrunk(trunk))
}

// ListTrunks handles GET /v1/trunks.
func (h *Handler) ListTrunks(w http.ResponseWriter, r *http.Request) {
	trunks, err := h.Store.ListTrunks(r.Context())
	if err != nil {
		slog.Error("list trunks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list trunks")
		return
	}

	views := make([]trunkView, 0, len(trunks))
	for _, t := range trunks {
		views = append(views, viewTrunk(t))
	}
	writeSuccess(w, http.StatusOK, "Trunks fetched successfully", views)
}
