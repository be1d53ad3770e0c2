package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/models"
	"github.com/bddaily/bddaily-server/pkg/services"
)

// CustomersHandler serves the customer table.
type CustomersHandler struct {
	customers services.CustomerService
	logger    *zap.Logger
}

// NewCustomersHandler creates a new customers handler.
func NewCustomersHandler(customers services.CustomerService, logger *zap.Logger) *CustomersHandler {
	return &CustomersHandler{customers: customers, logger: logger}
}

// RegisterRoutes registers the customer routes on the given mux.
func (h *CustomersHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/customers", h.List)
	mux.HandleFunc("GET /api/customers/{customerId}", h.Get)
	mux.HandleFunc("POST /api/customers", h.Create)
	mux.HandleFunc("PUT /api/customers/{customerId}", h.Update)
}

// List handles GET /api/customers?keyword=.
func (h *CustomersHandler) List(w http.ResponseWriter, r *http.Request) {
	keyword := QueryParam(r, "keyword")
	customers, err := h.customers.List(r.Context(), keyword)
	if err != nil {
		respondError(w, h.logger, "GET /api/customers", err)
		return
	}
	respond(w, h.logger, customers)
}

// Get handles GET /api/customers/{customerId}.
func (h *CustomersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "customerId", h.logger)
	if !ok {
		return
	}
	customer, err := h.customers.Get(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, "GET /api/customers/{customerId}", err)
		return
	}
	respond(w, h.logger, customer)
}

// Create handles POST /api/customers.
func (h *CustomersHandler) Create(w http.ResponseWriter, r *http.Request) {
	in := &models.CustomerInput{}
	if err := decodeBody(w, r, in); err != nil {
		respondError(w, h.logger, "POST /api/customers", err)
		return
	}
	result, err := h.customers.Create(r.Context(), in)
	if err != nil {
		respondError(w, h.logger, "POST /api/customers", err)
		return
	}
	respondWrite(w, h.logger, result)
}

// Update handles PUT /api/customers/{customerId}.
func (h *CustomersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "customerId", h.logger)
	if !ok {
		return
	}
	in := &models.CustomerInput{}
	if err := decodeBody(w, r, in); err != nil {
		respondError(w, h.logger, "PUT /api/customers/{customerId}", err)
		return
	}
	result, err := h.customers.Update(r.Context(), id, in)
	if err != nil {
		respondError(w, h.logger, "PUT /api/customers/{customerId}", err)
		return
	}
	respondWrite(w, h.logger, result)
}
