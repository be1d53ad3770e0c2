package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/models"
	"github.com/bddaily/bddaily-server/pkg/services"
)

// DealsHandler serves the deal (立项) table.
type DealsHandler struct {
	deals  services.DealService
	logger *zap.Logger
}

// NewDealsHandler creates a new deals handler.
func NewDealsHandler(deals services.DealService, logger *zap.Logger) *DealsHandler {
	return &DealsHandler{deals: deals, logger: logger}
}

// RegisterRoutes registers the deal routes on the given mux.
func (h *DealsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/deals", h.List)
	mux.HandleFunc("GET /api/deals/{dealId}", h.Get)
	mux.HandleFunc("POST /api/deals", h.Create)
	mux.HandleFunc("PUT /api/deals/{dealId}", h.Update)
}

// List handles GET /api/deals?keyword=&projectId=.
// Deals without their own project name get it from the project table.
func (h *DealsHandler) List(w http.ResponseWriter, r *http.Request) {
	keyword := QueryParam(r, "keyword")
	projectID := QueryParam(r, "projectId")
	deals, err := h.deals.List(r.Context(), keyword, projectID)
	if err != nil {
		respondError(w, h.logger, "GET /api/deals", err)
		return
	}
	respond(w, h.logger, deals)
}

// Get handles GET /api/deals/{dealId}.
func (h *DealsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "dealId", h.logger)
	if !ok {
		return
	}
	deal, err := h.deals.Get(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, "GET /api/deals/{dealId}", err)
		return
	}
	respond(w, h.logger, deal)
}

// Create handles POST /api/deals.
func (h *DealsHandler) Create(w http.ResponseWriter, r *http.Request) {
	in := &models.DealInput{}
	if err := decodeBody(w, r, in); err != nil {
		respondError(w, h.logger, "POST /api/deals", err)
		return
	}
	result, err := h.deals.Create(r.Context(), in)
	if err != nil {
		respondError(w, h.logger, "POST /api/deals", err)
		return
	}
	respondWrite(w, h.logger, result)
}

// Update handles PUT /api/deals/{dealId}.
func (h *DealsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "dealId", h.logger)
	if !ok {
		return
	}
	in := &models.DealInput{}
	if err := decodeBody(w, r, in); err != nil {
		respondError(w, h.logger, "PUT /api/deals/{dealId}", err)
		return
	}
	result, err := h.deals.Update(r.Context(), id, in)
	if err != nil {
		respondError(w, h.logger, "PUT /api/deals/{dealId}", err)
		return
	}
	respondWrite(w, h.logger, result)
}
