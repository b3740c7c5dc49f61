package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// PingHandler answers liveness probes, reporting whether the
// conversation store is configured so operators can tell a healthy
// relay from one running without persistence.
type PingHandler struct {
	store  StoreStatus
	logger *slog.Logger
}

func NewPingHandler(log *slog.Logger, store StoreStatus) *PingHandler {
	return &PingHandler{
		store:  store,
		logger: log.With(slog.String("handler", "ping")),
	}
}

func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.HEAD("/health", h.PingHead)
}

func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":           "ok",
		"store_configured": h.store.Configured(),
	})
}

func (h *PingHandler) PingHead(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}
