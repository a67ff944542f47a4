package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	backend string
}

func NewHealthHandler(backend string) *HealthHandler { return &HealthHandler{backend: backend} }

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "action") == "ping" {
		writeResult(w, MessageResult{Message: "pong", Backend: h.backend})
		return
	}
	writeError(w, http.StatusBadRequest, statusInvalidArgument, "unknown action")
}
