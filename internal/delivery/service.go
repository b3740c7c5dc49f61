package delivery

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"

	"github.com/sobrus/chatrelay/internal/config"
)

const whatsappPrefix = "whatsapp:"

// Response is the HTTP payload a delivery attempt resolves to. The
// webhook route writes it verbatim; it is always a 2xx.
type Response struct {
	StatusCode  int
	ContentType string
	Body        string
}

// Service guarantees a valid outbound reply regardless of channel
// provider availability. Three tiers, first success wins: direct API
// delivery, inline TwiML markup, raw plain text.
type Service struct {
	cfg    config.TwilioConfig
	client *twilio.RestClient
	logger *slog.Logger
}

// NewService creates the delivery chain. The REST client is only
// constructed when credentials are present; without it tier 1 is
// skipped entirely.
func NewService(log *slog.Logger, cfg config.TwilioConfig) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		cfg:    cfg,
		logger: log.With(slog.String("service", "delivery")),
	}
	if cfg.Configured() {
		s.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
	}
	return s
}

// FormatBody converts markdown bold emphasis into the channel's single
// asterisk emphasis. Applied identically on every delivery path.
func FormatBody(text string) string {
	return strings.ReplaceAll(text, "**", "*")
}

// Deliver sends the agent reply to the user. With a configured provider
// it attempts a direct API send and acknowledges with an empty 204; on
// missing configuration or API failure it falls back to inline markup.
func (s *Service) Deliver(ctx context.Context, userID, text string) Response {
	body := FormatBody(text)
	if s.client != nil {
		params := &api.CreateMessageParams{}
		params.SetFrom(whatsappPrefix + s.cfg.PhoneNumber)
		params.SetTo(whatsappPrefix + userID)
		params.SetBody(body)
		msg, err := s.client.Api.CreateMessage(params)
		if err == nil {
			sid := ""
			if msg != nil && msg.Sid != nil {
				sid = *msg.Sid
			}
			s.logger.Info("message sent via provider",
				slog.String("user_id", userID),
				slog.String("sid", sid))
			return Response{StatusCode: http.StatusNoContent}
		}
		s.logger.Warn("provider send failed, falling back to markup",
			slog.String("user_id", userID),
			slog.Any("error", err))
	}
	return s.markup(body)
}

// Markup builds an inline TwiML reply for the given text without
// attempting API delivery. Used for apology replies on the webhook
// route; it never fails.
func (s *Service) Markup(text string) Response {
	return s.markup(FormatBody(text))
}

func (s *Service) markup(body string) Response {
	doc, err := twiml.Messages([]twiml.Element{
		&twiml.MessagingMessage{Body: body},
	})
	if err != nil {
		// Ultimate fallback: a plain-text 200 with the formatted body.
		s.logger.Error("build twiml failed", slog.Any("error", err))
		return Response{
			StatusCode:  http.StatusOK,
			ContentType: "text/plain",
			Body:        body,
		}
	}
	return Response{
		StatusCode:  http.StatusOK,
		ContentType: "application/xml",
		Body:        doc,
	}
}
