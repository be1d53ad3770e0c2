package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/feishu"
	"github.com/bddaily/bddaily-server/pkg/services"
)

// DebugHandler exposes diagnostics used while wiring the Bitable tables:
// raw records, column listings, the person index and the environment.
type DebugHandler struct {
	debug  services.DebugService
	logger *zap.Logger
}

// NewDebugHandler creates a new debug handler.
func NewDebugHandler(debug services.DebugService, logger *zap.Logger) *DebugHandler {
	return &DebugHandler{debug: debug, logger: logger}
}

// RegisterRoutes registers the diagnostic routes on the given mux.
func (h *DebugHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/records/{recordId}", h.Record)
	mux.HandleFunc("GET /api/test-fields", h.fields("GET /api/test-fields", h.debug.CustomerFields))
	mux.HandleFunc("GET /api/test-project-fields", h.fields("GET /api/test-project-fields", h.debug.ProjectFields))
	mux.HandleFunc("GET /api/test-deal-fields", h.fields("GET /api/test-deal-fields", h.debug.DealFields))
	mux.HandleFunc("GET /api/project-persons", h.ProjectPersons)
	mux.HandleFunc("GET /api/debug-env", h.Env)
}

// Record handles GET /api/records/{recordId} on the customer table.
func (h *DebugHandler) Record(w http.ResponseWriter, r *http.Request) {
	recordID, ok := ParsePathID(w, r, "recordId", h.logger)
	if !ok {
		return
	}
	rec, err := h.debug.Record(r.Context(), recordID)
	if err != nil {
		respondError(w, h.logger, "GET /api/records/{recordId}", err)
		return
	}
	respond(w, h.logger, rec)
}

func (h *DebugHandler) fields(op string, list func(context.Context) ([]feishu.Field, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, err := list(r.Context())
		if err != nil {
			respondError(w, h.logger, op, err)
			return
		}
		respond(w, h.logger, fields)
	}
}

// ProjectPersons handles GET /api/project-persons.
func (h *DebugHandler) ProjectPersons(w http.ResponseWriter, r *http.Request) {
	persons, err := h.debug.ProjectPersons(r.Context())
	if err != nil {
		respondError(w, h.logger, "GET /api/project-persons", err)
		return
	}
	respond(w, h.logger, persons)
}

// Env handles GET /api/debug-env. The report is written bare, without an envelope.
func (h *DebugHandler) Env(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, h.debug.Env()); err != nil {
		h.logger.Error("Failed to encode debug-env response", zap.Error(err))
	}
}
