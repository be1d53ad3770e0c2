package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/services"
)

// RemindersHandler serves the follow-up reminder list.
type RemindersHandler struct {
	reminders services.ReminderService
	logger    *zap.Logger
}

// NewRemindersHandler creates a new reminders handler.
func NewRemindersHandler(reminders services.ReminderService, logger *zap.Logger) *RemindersHandler {
	return &RemindersHandler{reminders: reminders, logger: logger}
}

// RegisterRoutes registers the reminder routes on the given mux.
func (h *RemindersHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/reminders", h.List)
	mux.HandleFunc("POST /api/reminders/{projectId}/followup", h.Followup)
}

// List handles GET /api/reminders.
func (h *RemindersHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.reminders.List(r.Context())
	if err != nil {
		respondError(w, h.logger, "GET /api/reminders", err)
		return
	}
	respond(w, h.logger, items)
}

// Followup handles POST /api/reminders/{projectId}/followup.
func (h *RemindersHandler) Followup(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParsePathID(w, r, "projectId", h.logger)
	if !ok {
		return
	}
	followed, err := h.reminders.Followup(r.Context(), projectID)
	if err != nil {
		respondError(w, h.logger, "POST /api/reminders/{projectId}/followup", err)
		return
	}
	respond(w, h.logger, followed)
}
