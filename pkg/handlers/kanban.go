package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/config"
)

const (
	kanbanHint      = "Kanban API placeholder; connect to Feishu Kanban later."
	kanbanBoardName = "Feishu Kanban"
	kanbanBoardDesc = "飞书看板占位"
	isoMillis       = "2006-01-02T15:04:05.000Z07:00"
)

// KanbanBoard is the placeholder board shape.
type KanbanBoard struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// KanbanHandler reserves the kanban routes. Every response carries
// reserved:true until a real board integration exists.
type KanbanHandler struct {
	appToken string
	boardID  string
	now      func() time.Time
	logger   *zap.Logger
}

// NewKanbanHandler creates a new kanban placeholder handler.
func NewKanbanHandler(cfg *config.FeishuConfig, logger *zap.Logger) *KanbanHandler {
	return &KanbanHandler{
		appToken: cfg.KanbanAppToken,
		boardID:  cfg.KanbanBoardID,
		now:      time.Now,
		logger:   logger,
	}
}

// RegisterRoutes registers the kanban routes on the given mux.
func (h *KanbanHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/kanban/boards", h.ListBoards)
	mux.HandleFunc("GET /api/kanban/boards/{boardId}", h.GetBoard)
	mux.HandleFunc("GET /api/kanban/boards/{boardId}/columns", h.ListColumns)
	mux.HandleFunc("GET /api/kanban/boards/{boardId}/cards", h.ListCards)
	mux.HandleFunc("POST /api/kanban/boards/{boardId}/cards", h.cardAction("create_card"))
	mux.HandleFunc("PUT /api/kanban/boards/{boardId}/cards/{cardId}", h.cardAction("update_card"))
	mux.HandleFunc("PATCH /api/kanban/boards/{boardId}/cards/{cardId}/move", h.cardAction("move_card"))
	mux.HandleFunc("POST /api/kanban/boards/{boardId}/sync", h.stamp("syncedAt"))
	mux.HandleFunc("POST /api/kanban/boards/{boardId}/push", h.stamp("pushedAt"))
}

// ListBoards handles GET /api/kanban/boards.
func (h *KanbanHandler) ListBoards(w http.ResponseWriter, r *http.Request) {
	boards := []KanbanBoard{}
	if h.boardID != "" {
		boards = append(boards, placeholderBoard(h.boardID))
	}
	h.placeholder(w, boards, map[string]any{
		"target": map[string]*string{
			"appToken": nonEmpty(h.appToken),
			"boardId":  nonEmpty(h.boardID),
		},
	})
}

// GetBoard handles GET /api/kanban/boards/{boardId}.
func (h *KanbanHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	var board *KanbanBoard
	if id := strings.TrimSpace(r.PathValue("boardId")); id != "" {
		b := placeholderBoard(id)
		board = &b
	}
	h.placeholder(w, board, nil)
}

// ListColumns handles GET /api/kanban/boards/{boardId}/columns.
func (h *KanbanHandler) ListColumns(w http.ResponseWriter, r *http.Request) {
	h.placeholder(w, []any{}, nil)
}

// ListCards handles GET /api/kanban/boards/{boardId}/cards.
func (h *KanbanHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	h.placeholder(w, []any{}, nil)
}

// cardAction echoes a card mutation back to the caller.
func (h *KanbanHandler) cardAction(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload any = map[string]any{}
		if err := decodeBody(w, r, &payload); err != nil {
			respondError(w, h.logger, r.Method+" "+r.URL.Path, err)
			return
		}
		if payload == nil {
			payload = map[string]any{}
		}
		extra := map[string]any{
			"action":  action,
			"boardId": strings.TrimSpace(r.PathValue("boardId")),
			"payload": payload,
		}
		if cardID := r.PathValue("cardId"); cardID != "" {
			extra["cardId"] = strings.TrimSpace(cardID)
		}
		h.placeholder(w, nil, extra)
	}
}

// stamp answers sync and push with the time of the request.
func (h *KanbanHandler) stamp(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.placeholder(w,
			map[string]string{key: h.now().UTC().Format(isoMillis)},
			map[string]any{"boardId": strings.TrimSpace(r.PathValue("boardId"))},
		)
	}
}

func (h *KanbanHandler) placeholder(w http.ResponseWriter, data any, extra map[string]any) {
	body := map[string]any{
		"success":  true,
		"reserved": true,
		"data":     data,
		"hint":     kanbanHint,
	}
	for k, v := range extra {
		body[k] = v
	}
	if err := WriteJSON(w, http.StatusOK, body); err != nil {
		h.logger.Error("Failed to encode kanban response", zap.Error(err))
	}
}

func placeholderBoard(id string) KanbanBoard {
	return KanbanBoard{ID: id, Name: kanbanBoardName, Description: kanbanBoardDesc}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
