package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/models"
	"github.com/bddaily/bddaily-server/pkg/services"
)

// ProjectsHandler serves the project table.
type ProjectsHandler struct {
	projects services.ProjectService
	logger   *zap.Logger
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(projects services.ProjectService, logger *zap.Logger) *ProjectsHandler {
	return &ProjectsHandler{projects: projects, logger: logger}
}

// RegisterRoutes registers the project routes on the given mux.
func (h *ProjectsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/projects", h.List)
	mux.HandleFunc("GET /api/projects/{projectId}", h.Get)
	mux.HandleFunc("POST /api/projects", h.Create)
	mux.HandleFunc("PUT /api/projects/{projectId}", h.Update)
}

// List handles GET /api/projects?keyword=&customerId=.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	keyword := QueryParam(r, "keyword")
	customerID := QueryParam(r, "customerId")
	projects, err := h.projects.List(r.Context(), keyword, customerID)
	if err != nil {
		respondError(w, h.logger, "GET /api/projects", err)
		return
	}
	respond(w, h.logger, projects)
}

// Get handles GET /api/projects/{projectId}.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "projectId", h.logger)
	if !ok {
		return
	}
	project, err := h.projects.Get(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, "GET /api/projects/{projectId}", err)
		return
	}
	respond(w, h.logger, project)
}

// Create handles POST /api/projects.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	in := &models.ProjectInput{}
	if err := decodeBody(w, r, in); err != nil {
		respondError(w, h.logger, "POST /api/projects", err)
		return
	}
	result, err := h.projects.Create(r.Context(), in)
	if err != nil {
		respondError(w, h.logger, "POST /api/projects", err)
		return
	}
	respondWrite(w, h.logger, result)
}

// Update handles PUT /api/projects/{projectId}.
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "projectId", h.logger)
	if !ok {
		return
	}
	in := &models.ProjectInput{}
	if err := decodeBody(w, r, in); err != nil {
		respondError(w, h.logger, "PUT /api/projects/{projectId}", err)
		return
	}
	result, err := h.projects.Update(r.Context(), id, in)
	if err != nil {
		respondError(w, h.logger, "PUT /api/projects/{projectId}", err)
		return
	}
	respondWrite(w, h.logger, result)
}
