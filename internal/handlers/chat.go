package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sobrus/chatrelay/internal/agent"
	"github.com/sobrus/chatrelay/internal/message"
)

const chatApology = "Désolé, une erreur est survenue en traitant votre demande. Réessayez dans un instant."

// Appender is the write surface of the conversation store.
type Appender interface {
	Append(ctx context.Context, input message.AppendInput)
}

// Invoker runs one agent turn.
type Invoker interface {
	Invoke(ctx context.Context, input agent.InvokeInput) (agent.Reply, error)
}

// ChatHandler exposes the direct (non-channel) chat turn.
type ChatHandler struct {
	store  Appender
	agent  Invoker
	logger *slog.Logger
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(log *slog.Logger, store Appender, agentClient Invoker) *ChatHandler {
	return &ChatHandler{
		store:  store,
		agent:  agentClient,
		logger: log.With(slog.String("handler", "chat")),
	}
}

func (h *ChatHandler) Register(e *echo.Echo) {
	e.POST("/api/chat", h.Chat)
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type chatResponse struct {
	UserID        string `json:"user_id"`
	Message       string `json:"message"`
	AgentResponse string `json:"agent_response"`
	Timestamp     string `json:"timestamp"`
}

// Chat runs one synchronous chat turn: persist the user message, invoke
// the agent (substituting a fixed apology on failure), persist the
// agent message, and return both.
func (h *ChatHandler) Chat(c echo.Context) error {
	var req chatRequest
	// A malformed body falls through to the missing-fields check, same
	// as an empty one.
	_ = c.Bind(&req)
	if req.UserID == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "user_id and message are required"})
	}

	ctx := c.Request().Context()
	timestamp := time.Now().UTC()
	sessionID := message.SessionID(req.UserID)

	h.store.Append(ctx, message.AppendInput{
		UserID:    req.UserID,
		Text:      req.Message,
		Sender:    message.SenderUser,
		Timestamp: timestamp,
		SessionID: sessionID,
	})

	agentText := chatApology
	reply, err := h.agent.Invoke(ctx, agent.InvokeInput{
		Text:      req.Message,
		UserID:    req.UserID,
		SessionID: sessionID,
	})
	if err != nil {
		h.logger.Error("agent turn failed",
			slog.String("user_id", req.UserID),
			slog.Any("error", err))
	} else {
		agentText = reply.Text()
	}

	h.store.Append(ctx, message.AppendInput{
		UserID:    req.UserID,
		Text:      agentText,
		Sender:    message.SenderAgent,
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
	})

	return c.JSON(http.StatusOK, chatResponse{
		UserID:        req.UserID,
		Message:       req.Message,
		AgentResponse: agentText,
		Timestamp:     message.FormatTimestamp(timestamp),
	})
}
