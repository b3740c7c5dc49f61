package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sobrus/chatrelay/internal/delivery"
	"github.com/sobrus/chatrelay/internal/webhook"
)

// Processor drives one inbound channel event to a guaranteed reply.
type Processor interface {
	Handle(ctx context.Context, in webhook.Inbound) delivery.Response
}

// WebhookHandler receives channel-provider webhook callbacks. The
// provider expects a reply body, never an error status: whatever
// happens, the response is 2xx.
type WebhookHandler struct {
	processor Processor
	logger    *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(log *slog.Logger, processor Processor) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		logger:    log.With(slog.String("handler", "webhook")),
	}
}

func (h *WebhookHandler) Register(e *echo.Echo) {
	e.POST("/webhook", h.Receive)
}

// Receive parses the provider payload (form-encoded or JSON) and runs
// it through the webhook processor. A body that cannot be parsed is
// treated as an empty event, not an error.
func (h *WebhookHandler) Receive(c echo.Context) error {
	in := h.parseInbound(c)
	resp := h.processor.Handle(c.Request().Context(), in)
	if resp.StatusCode == http.StatusNoContent {
		return c.NoContent(http.StatusNoContent)
	}
	return c.Blob(resp.StatusCode, resp.ContentType, []byte(resp.Body))
}

func (h *WebhookHandler) parseInbound(c echo.Context) webhook.Inbound {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEApplicationForm) ||
		strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		return webhook.Inbound{
			From:             c.FormValue("From"),
			Body:             c.FormValue("Body"),
			MediaURL:         c.FormValue("MediaUrl0"),
			MediaContentType: c.FormValue("MediaContentType0"),
		}
	}

	var payload map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&payload); err != nil {
		h.logger.Warn("webhook body parse failed", slog.Any("error", err))
		return webhook.Inbound{}
	}
	return webhook.Inbound{
		From:             stringField(payload, "From"),
		Body:             stringField(payload, "Body"),
		MediaURL:         stringField(payload, "MediaUrl0"),
		MediaContentType: stringField(payload, "MediaContentType0"),
	}
}

func stringField(payload map[string]any, key string) string {
	raw, ok := payload[key]
	if !ok || raw == nil {
		return ""
	}
	if value, ok := raw.(string); ok {
		return value
	}
	return fmt.Sprint(raw)
}
