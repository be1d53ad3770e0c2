package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bddaily/bddaily-server/pkg/apperrors"
	"github.com/bddaily/bddaily-server/pkg/services"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		message    string
	}{
		{"bad request", http.StatusBadRequest, "缺少 projectName"},
		{"not found", http.StatusNotFound, "project not found"},
		{"internal error", http.StatusInternalServerError, "something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			err := ErrorResponse(w, tt.statusCode, tt.message)
			if err != nil {
				t.Fatalf("ErrorResponse returned error: %v", err)
			}

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != tt.statusCode {
				t.Errorf("status code = %d, want %d", resp.StatusCode, tt.statusCode)
			}

			ct := resp.Header.Get("Content-Type")
			if ct != "application/json" {
				t.Errorf("Content-Type = %q, want %q", ct, "application/json")
			}

			var body map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response body: %v", err)
			}

			if body["success"] != false {
				t.Errorf("body[success] = %v, want false", body["success"])
			}
			if body["error"] != tt.message {
				t.Errorf("body[error] = %q, want %q", body["error"], tt.message)
			}
			if _, ok := body["known_names"]; ok {
				t.Error("known_names should be omitted when empty")
			}
		})
	}
}

func TestWriteJSON_Status200(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"key": "value"}

	err := WriteJSON(w, http.StatusOK, data)
	if err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}

	resp := w.Result()
	defer resp.Body.Close()

	// Status 200 is the default for ResponseRecorder, WriteJSON should not call WriteHeader
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body["key"] != "value" {
		t.Errorf("body[key] = %q, want %q", body["key"], "value")
	}
}

func TestWriteJSON_UnencodableData(t *testing.T) {
	w := httptest.NewRecorder()
	data := make(chan int) // channels cannot be JSON-encoded

	err := WriteJSON(w, http.StatusOK, data)
	if err == nil {
		t.Error("expected error for unencodable data, got nil")
	}
}

func TestErrorBody_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", fmt.Errorf("%w: 缺少 projectName", apperrors.ErrValidation), http.StatusBadRequest, "缺少 projectName"},
		{"not found", fmt.Errorf("%w: deal not found", apperrors.ErrNotFound), http.StatusNotFound, "deal not found"},
		{"not configured", fmt.Errorf("%w: missing project appToken/tableId", apperrors.ErrNotConfigured), http.StatusInternalServerError, "missing project appToken/tableId"},
		{"wrapped upstream", fmt.Errorf("create project: %w", fmt.Errorf("%w: 飞书返回异常：未生成 record_id", apperrors.ErrUpstream)), http.StatusInternalServerError, "飞书返回异常：未生成 record_id"},
		{"unknown", errors.New("dial tcp: connection refused"), http.StatusInternalServerError, "dial tcp: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := errorBody(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, body.Error)
			assert.False(t, body.Success)
			assert.Nil(t, body.KnownNames)
		})
	}
}

func TestErrorBody_UnresolvedPerson(t *testing.T) {
	err := fmt.Errorf("create project: %w", &services.UnresolvedPersonError{
		Field:      "BD",
		Input:      "钱七",
		KnownNames: []string{"李四", "张三"},
	})

	status, body := errorBody(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []string{"李四", "张三"}, body.KnownNames)
	assert.Contains(t, body.Error, "BD='钱七'")
}

func TestDecodeBody(t *testing.T) {
	t.Run("empty body leaves defaults", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		dst := map[string]any{"kept": true}
		require.NoError(t, decodeBody(httptest.NewRecorder(), req, &dst))
		assert.Equal(t, map[string]any{"kept": true}, dst)
	})

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{oops"))
		var dst map[string]any
		err := decodeBody(httptest.NewRecorder(), req, &dst)
		require.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Contains(t, err.Error(), "invalid JSON body")
	})

	t.Run("oversized body", func(t *testing.T) {
		big := `{"notes":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		var dst map[string]any
		err := decodeBody(httptest.NewRecorder(), req, &dst)
		require.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Contains(t, err.Error(), "exceeds")
	})
}
