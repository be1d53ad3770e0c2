package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/config"
	"github.com/bddaily/bddaily-server/pkg/services"
)

const serviceName = "bddaily-server"

// PingResponse contains service status, version and which Bitable tables
// this instance can reach.
type PingResponse struct {
	Status      string          `json:"status"`
	Version     string          `json:"version"`
	BuildID     string          `json:"build_id"`
	Service     string          `json:"service"`
	GoVersion   string          `json:"go_version"`
	Hostname    string          `json:"hostname"`
	Environment string          `json:"environment"`
	Tables      map[string]bool `json:"tables"`
	Cache       string          `json:"cache"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg    *config.Config
	tables services.Tables
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler with the given configuration.
func NewHealthHandler(cfg *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		cfg:    cfg,
		tables: services.TablesFromConfig(&cfg.Feishu),
		logger: logger,
	}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests.
// Returns a plain "ok" for load balancer probes; it never calls Feishu.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests.
// Missing tables are reported, not treated as failures: the affected
// endpoints answer with a configuration error of their own.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	cacheBackend := "memory"
	if h.cfg.Redis.Enabled() {
		cacheBackend = "redis"
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		BuildID:     h.cfg.BuildID,
		Service:     serviceName,
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
		Tables: map[string]bool{
			"customer": h.tables.Customer.Configured(),
			"project":  h.tables.Project.Configured(),
			"deal":     h.tables.Deal.Configured(),
		},
		Cache: cacheBackend,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
