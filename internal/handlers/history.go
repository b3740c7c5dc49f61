package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sobrus/chatrelay/internal/history"
)

// StoreStatus reports whether the conversation store is configured.
// Read endpoints answer 503 rather than attempting a connection when it
// is not.
type StoreStatus interface {
	Configured() bool
}

// HistoryHandler exposes the read/aggregation endpoints over the
// conversation log.
type HistoryHandler struct {
	store   StoreStatus
	history *history.Service
	logger  *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(log *slog.Logger, store StoreStatus, historyService *history.Service) *HistoryHandler {
	return &HistoryHandler{
		store:   store,
		history: historyService,
		logger:  log.With(slog.String("handler", "history")),
	}
}

func (h *HistoryHandler) Register(e *echo.Echo) {
	e.GET("/api/chat/history/:user_id", h.GetHistory)
	e.GET("/api/chat/users", h.ListUsers)
	e.GET("/api/chat/users/:user_id/summary", h.GetUserSummary)
}

// GetHistory returns a chronological page of one user's messages, the
// page window anchored at the most recent message.
func (h *HistoryHandler) GetHistory(c echo.Context) error {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "user_id is required"})
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok || limit < 1 || limit > 100 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "limit must be between 1 and 100"})
	}
	skip, ok := queryInt(c, "skip", 0)
	if !ok || skip < 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "skip must be non-negative"})
	}
	if !h.store.Configured() {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Detail: "Database not configured"})
	}

	messages := h.history.History(c.Request().Context(), userID, limit, skip)
	return c.JSON(http.StatusOK, map[string]any{
		"user_id":        userID,
		"messages":       messages,
		"total_messages": len(messages),
		"limit":          limit,
		"skip":           skip,
	})
}

// ListUsers returns a page of distinct users with their latest message
// and message count, optionally with a bounded conversation summary.
func (h *HistoryHandler) ListUsers(c echo.Context) error {
	limit, ok := queryInt(c, "limit", 20)
	if !ok || limit < 1 || limit > 100 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "limit must be between 1 and 100"})
	}
	skip, ok := queryInt(c, "skip", 0)
	if !ok || skip < 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "skip must be non-negative"})
	}
	includeSummary, ok := queryBool(c, "include_summary", false)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "include_summary must be a boolean"})
	}
	if !h.store.Configured() {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Detail: "Database not configured"})
	}

	users := h.history.Users(c.Request().Context(), limit, skip, includeSummary)
	return c.JSON(http.StatusOK, map[string]any{
		"users":           users,
		"total_users":     len(users),
		"limit":           limit,
		"skip":            skip,
		"include_summary": includeSummary,
	})
}

// GetUserSummary returns the per-user conversation summary.
func (h *HistoryHandler) GetUserSummary(c echo.Context) error {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "user_id is required"})
	}
	limit, ok := queryInt(c, "limit", 10)
	if !ok || limit < 1 || limit > 50 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "limit must be between 1 and 50"})
	}
	if !h.store.Configured() {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Detail: "Database not configured"})
	}

	summary := h.history.Summary(c.Request().Context(), userID, limit)
	return c.JSON(http.StatusOK, summary)
}

func queryInt(c echo.Context, name string, fallback int) (int, bool) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}

func queryBool(c echo.Context, name string, fallback bool) (bool, bool) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}
