package webhook

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sobrus/chatrelay/internal/agent"
	"github.com/sobrus/chatrelay/internal/delivery"
	"github.com/sobrus/chatrelay/internal/message"
)

// Localized reply texts. The support audience is French-speaking; these
// mirror the agent's own response language.
const (
	mediaApology      = "Désolé, je n'ai pas pu récupérer l'audio. Réessayez plus tard."
	audioApology      = "Désolé, une erreur est survenue avec le traitement audio. Réessayez plus tard."
	textApology       = "Désolé, une erreur est survenue. Réessayez dans un instant."
	unexpectedApology = "Désolé, une erreur inattendue est survenue."

	audioPlaceholder = "[Audio Message]"
	audioPrompt      = "Listen to this audio. Search knowledge base and respond in French using 'vous'."
	emptyAck         = "Missing user_id or message"
)

// Inbound is one raw channel event as parsed off the webhook request.
type Inbound struct {
	From             string
	Body             string
	MediaURL         string
	MediaContentType string
}

// Classification of an inbound event.
type Classification int

const (
	ClassEmpty Classification = iota
	ClassText
	ClassAudio
)

// Classify determines the processing branch for an inbound event: audio
// when a media reference with an audio content type is present, text
// when a non-empty body is present, empty otherwise.
func Classify(in Inbound) Classification {
	if strings.TrimSpace(in.MediaURL) != "" && strings.HasPrefix(in.MediaContentType, "audio") {
		return ClassAudio
	}
	if in.Body != "" {
		return ClassText
	}
	return ClassEmpty
}

// UserID strips the channel transport prefix from the raw sender
// identifier.
func UserID(from string) string {
	return strings.TrimPrefix(strings.TrimSpace(from), "whatsapp:")
}

// Appender is the write surface of the conversation store.
type Appender interface {
	Append(ctx context.Context, input message.AppendInput)
}

// Invoker runs one agent turn.
type Invoker interface {
	Invoke(ctx context.Context, input agent.InvokeInput) (agent.Reply, error)
}

// Fetcher retrieves media referenced by an inbound event.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Responder produces the outbound reply payload.
type Responder interface {
	Deliver(ctx context.Context, userID, text string) delivery.Response
	Markup(text string) delivery.Response
}

// Processor drives an inbound channel event from classification through
// media fetch, agent invocation, and persistence to a guaranteed
// outbound reply. No failure escapes Handle: every path resolves to a
// valid 2xx response payload.
type Processor struct {
	store    Appender
	agent    Invoker
	media    Fetcher
	delivery Responder
	logger   *slog.Logger
}

// NewProcessor creates a webhook processor.
func NewProcessor(log *slog.Logger, store Appender, agentClient Invoker, media Fetcher, deliveryService Responder) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		store:    store,
		agent:    agentClient,
		media:    media,
		delivery: deliveryService,
		logger:   log.With(slog.String("component", "webhook")),
	}
}

// Handle processes one inbound event and always returns a response
// payload, even when an internal step panics.
func (p *Processor) Handle(ctx context.Context, in Inbound) (resp delivery.Response) {
	eventID := uuid.NewString()
	log := p.logger.With(slog.String("event_id", eventID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("webhook processing panicked", slog.Any("panic", r))
			resp = p.delivery.Markup(unexpectedApology)
		}
	}()

	userID := UserID(in.From)
	sessionID := message.SessionID(userID)
	receivedAt := time.Now().UTC()

	switch Classify(in) {
	case ClassAudio:
		return p.handleAudio(ctx, log, in, userID, sessionID, receivedAt)
	case ClassText:
		return p.handleText(ctx, log, in, userID, sessionID, receivedAt)
	default:
		// The only branch with zero writes.
		log.Debug("webhook event empty", slog.String("user_id", userID))
		return delivery.Response{
			StatusCode:  200,
			ContentType: "text/plain",
			Body:        emptyAck,
		}
	}
}

func (p *Processor) handleAudio(ctx context.Context, log *slog.Logger, in Inbound, userID, sessionID string, receivedAt time.Time) delivery.Response {
	audio, fetchErr := p.media.Fetch(ctx, in.MediaURL)

	// The user attempted contact: the placeholder turn is recorded even
	// when the media itself cannot be retrieved.
	p.store.Append(ctx, message.AppendInput{
		UserID:    userID,
		Text:      audioPlaceholder,
		Sender:    message.SenderUser,
		Timestamp: receivedAt,
		SessionID: sessionID,
		AudioURL:  in.MediaURL,
		MediaType: in.MediaContentType,
	})

	if fetchErr != nil {
		log.Warn("media fetch failed",
			slog.String("user_id", userID),
			slog.String("media_url", in.MediaURL),
			slog.Any("error", fetchErr))
		return p.delivery.Markup(mediaApology)
	}

	reply, err := p.agent.Invoke(ctx, agent.InvokeInput{
		Text:      audioPrompt,
		Audio:     audio,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		log.Error("agent audio turn failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
		p.appendAgent(ctx, userID, sessionID, audioApology)
		return p.delivery.Markup(audioApology)
	}

	p.appendAgent(ctx, userID, sessionID, reply.Text())
	return p.delivery.Deliver(ctx, userID, reply.Text())
}

func (p *Processor) handleText(ctx context.Context, log *slog.Logger, in Inbound, userID, sessionID string, receivedAt time.Time) delivery.Response {
	p.store.Append(ctx, message.AppendInput{
		UserID:    userID,
		Text:      in.Body,
		Sender:    message.SenderUser,
		Timestamp: receivedAt,
		SessionID: sessionID,
	})

	reply, err := p.agent.Invoke(ctx, agent.InvokeInput{
		Text:      in.Body,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		log.Error("agent text turn failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
		p.appendAgent(ctx, userID, sessionID, textApology)
		return p.delivery.Markup(textApology)
	}

	p.appendAgent(ctx, userID, sessionID, reply.Text())
	return p.delivery.Deliver(ctx, userID, reply.Text())
}

func (p *Processor) appendAgent(ctx context.Context, userID, sessionID, text string) {
	p.store.Append(ctx, message.AppendInput{
		UserID:    userID,
		Text:      text,
		Sender:    message.SenderAgent,
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
	})
}
