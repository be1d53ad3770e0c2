package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// ParsePathID extracts a trimmed identifier from the request path.
// Returns the id and true on success, or "" and false when it is blank
// (after writing a 400 "缺少 <name>" response).
func ParsePathID(w http.ResponseWriter, r *http.Request, name string, logger *zap.Logger) (string, bool) {
	id := strings.TrimSpace(r.PathValue(name))
	if id == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "缺少 "+name); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return "", false
	}
	return id, true
}

// QueryParam returns a trimmed query parameter, "" when absent.
func QueryParam(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}
