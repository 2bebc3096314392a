package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shubhamINT/api-livekit/internal/health"
	"github.com/shubhamINT/api-livekit/internal/observe"
)

// NewRouter assembles the management API routes, health endpoints and the
// Prometheus scrape endpoint, wrapped in the observability middleware.
func NewRouter(h *Handler, hc *health.Handler, metrics *observe.Metrics) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/assistants", h.CreateAssistant)
	mux.HandleFunc("GET /v1/assistants", h.ListAssistants)
	mux.HandleFunc("GET /v1/assistants/{id}", h.GetAssistant)
	mux.HandleFunc("PUT /v1/assistants/{id}", h.UpdateAssistant)
	mux.HandleFunc("DELETE /v1/assistants/{id}", h.DeleteAssistant)

	mux.HandleFunc("POST /v1/assistants/{id}/tools/attach", h.AttachTools)
	mux.HandleFunc("POST /v1/assistants/{id}/tools/detach", h.DetachTools)

	mux.HandleFunc("POST /v1/tools", h.CreateTool)
	mux.HandleFunc("GET /v1/tools", h.ListTools)
	mux.HandleFunc("GET /v1/tools/{id}", h.GetTool)
	mux.HandleFunc("PUT /v1/tools/{id}", h.UpdateTool)
	mux.HandleFunc("DELETE /v1/tools/{id}", h.DeleteTool)

	mux.HandleFunc("POST /v1/trunks", h.CreateTrunk)
	mux.HandleFunc("GET /v1/trunks", h.ListTrunks)

	mux.HandleFunc("POST /v1/calls/outbound", h.PlaceOutboundCall)
	mux.HandleFunc("GET /v1/calls", h.ListCalls)

	hc.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(metrics)(mux)
}
