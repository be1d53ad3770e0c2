package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/apperrors"
	"github.com/bddaily/bddaily-server/pkg/logging"
	"github.com/bddaily/bddaily-server/pkg/services"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 2 << 20

// ApiResponse is the envelope of every successful read.
type ApiResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// ErrorBody is the envelope of every failed request. KnownNames is set when a
// person name could not be resolved.
type ErrorBody struct {
	Success    bool     `json:"success"`
	Error      string   `json:"error"`
	KnownNames []string `json:"known_names,omitempty"`
}

// WriteBody is the envelope of a successful create or update.
type WriteBody struct {
	Success bool `json:"success"`
	*services.WriteResult
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, ErrorBody{Success: false, Error: message})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// respond writes {success:true, data}.
func respond(w http.ResponseWriter, logger *zap.Logger, data any) {
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

// respondWrite writes a create or update result.
func respondWrite(w http.ResponseWriter, logger *zap.Logger, result *services.WriteResult) {
	if err := WriteJSON(w, http.StatusOK, WriteBody{Success: true, WriteResult: result}); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

// respondError maps a service error to a status code and error body.
// Server-side failures are logged with credentials scrubbed.
func respondError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		logger.Error(op+" failed", zap.String("error", logging.SanitizeError(err)))
	} else {
		logger.Info(op+" rejected", zap.Int("status", status), zap.String("error", body.Error))
	}
	if err := WriteJSON(w, status, body); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

func errorBody(err error) (int, ErrorBody) {
	var unresolved *services.UnresolvedPersonError
	switch {
	case errors.As(err, &unresolved):
		return http.StatusBadRequest, ErrorBody{Error: unresolved.Error(), KnownNames: unresolved.KnownNames}
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, ErrorBody{Error: sentinelMessage(err, apperrors.ErrValidation)}
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, ErrorBody{Error: sentinelMessage(err, apperrors.ErrNotFound)}
	case errors.Is(err, apperrors.ErrNotConfigured):
		return http.StatusInternalServerError, ErrorBody{Error: sentinelMessage(err, apperrors.ErrNotConfigured)}
	case errors.Is(err, apperrors.ErrUpstream):
		return http.StatusInternalServerError, ErrorBody{Error: sentinelMessage(err, apperrors.ErrUpstream)}
	default:
		return http.StatusInternalServerError, ErrorBody{Error: logging.SanitizeError(err)}
	}
}

// sentinelMessage returns the detail that follows sentinel in err's message,
// so clients see "缺少 projectName" rather than "validation failed: 缺少 projectName".
func sentinelMessage(err, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}

// decodeBody reads a JSON request body into dst. An empty body leaves dst as is.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: request body exceeds %d bytes", apperrors.ErrValidation, tooLarge.Limit)
		}
		return fmt.Errorf("%w: invalid JSON body", apperrors.ErrValidation)
	}
	return nil
}
