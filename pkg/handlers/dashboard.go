package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

const dashboardMissing = "missing FEISHU_DASHBOARD_EMBED_URL"

// DashboardHandler hands the frontend the embeddable Feishu dashboard URL.
type DashboardHandler struct {
	embedURL string
	logger   *zap.Logger
}

func NewDashboardHandler(embedURL string, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{embedURL: embedURL, logger: logger}
}

// RegisterRoutes registers the dashboard route on the given mux.
func (h *DashboardHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/dashboard/embed", h.Embed)
}

// Embed handles GET /api/dashboard/embed.
func (h *DashboardHandler) Embed(w http.ResponseWriter, r *http.Request) {
	if h.embedURL == "" {
		if err := ErrorResponse(w, http.StatusInternalServerError, dashboardMissing); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	respond(w, h.logger, map[string]string{"url": h.embedURL})
}
