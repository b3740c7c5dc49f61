package history

import (
	"context"
	"log/slog"

	"github.com/sobrus/chatrelay/internal/message"
)

// summaryRecentLimit bounds the per-user summary attached by Users when
// include_summary is requested.
const summaryRecentLimit = 10

// Reader is the read surface of the conversation store used by the
// aggregator.
type Reader interface {
	ListNewest(ctx context.Context, userID string, limit, skip int) ([]message.Document, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	DistinctUsers(ctx context.Context, limit, skip int) ([]string, error)
	Newest(ctx context.Context, userID string) (message.Document, bool, error)
	Oldest(ctx context.Context, userID string) (message.Document, bool, error)
}

// Summary is a read-time projection of one user's conversation.
type Summary struct {
	UserID         string            `json:"user_id"`
	TotalMessages  int64             `json:"total_messages"`
	RecentMessages []message.Message `json:"recent_messages"`
	FirstActivity  *string           `json:"first_activity"`
	LastActivity   *string           `json:"last_activity"`
}

// UserOverview is one entry of the Users listing.
type UserOverview struct {
	UserID              string          `json:"user_id"`
	LatestMessage       message.Message `json:"latest_message"`
	MessageCount        int64           `json:"message_count"`
	LastActivity        string          `json:"last_activity"`
	ConversationSummary *Summary        `json:"conversation_summary,omitempty"`
}

// Service aggregates read-side views over the append-only message log.
// Store failures degrade to empty or partial results, never errors:
// the admin surface prefers stale emptiness over failing requests.
type Service struct {
	store  Reader
	logger *slog.Logger
}

// NewService creates a history aggregator over the given store.
func NewService(log *slog.Logger, store Reader) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		logger: log.With(slog.String("service", "history")),
	}
}

// History returns the [skip, skip+limit) window of a user's messages
// anchored at the most recent one, reversed to chronological order so
// the page itself reads oldest-first.
func (s *Service) History(ctx context.Context, userID string, limit, skip int) []message.Message {
	docs, err := s.store.ListNewest(ctx, userID, limit, skip)
	if err != nil {
		s.logger.Warn("retrieve chat history failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return []message.Message{}
	}
	reverseDocuments(docs)
	return message.ToMessages(docs)
}

// Users lists distinct users sorted ascending with their latest message
// and total count, optionally attaching a bounded conversation summary
// per user. Summaries are computed sequentially per user; the page size
// caps the fan-out.
func (s *Service) Users(ctx context.Context, limit, skip int, includeSummary bool) []UserOverview {
	userIDs, err := s.store.DistinctUsers(ctx, limit, skip)
	if err != nil {
		s.logger.Warn("list users failed", slog.Any("error", err))
		return []UserOverview{}
	}
	overviews := make([]UserOverview, 0, len(userIDs))
	for _, userID := range userIDs {
		latest, found, err := s.store.Newest(ctx, userID)
		if err != nil || !found {
			if err != nil {
				s.logger.Warn("latest message lookup failed",
					slog.String("user_id", userID),
					slog.Any("error", err))
			}
			continue
		}
		count, err := s.store.CountByUser(ctx, userID)
		if err != nil {
			s.logger.Warn("message count failed",
				slog.String("user_id", userID),
				slog.Any("error", err))
			continue
		}
		overview := UserOverview{
			UserID:        userID,
			LatestMessage: message.ToMessage(latest),
			MessageCount:  count,
			LastActivity:  message.FormatTimestamp(latest.Timestamp),
		}
		if includeSummary {
			summary := s.Summary(ctx, userID, summaryRecentLimit)
			overview.ConversationSummary = &summary
		}
		overviews = append(overviews, overview)
	}
	return overviews
}

// Summary returns a user's total message count, the limit most recent
// messages in chronological order, and the timestamps of the first and
// last message ever recorded (independent of limit).
func (s *Service) Summary(ctx context.Context, userID string, limit int) Summary {
	summary := Summary{
		UserID:         userID,
		RecentMessages: []message.Message{},
	}

	count, err := s.store.CountByUser(ctx, userID)
	if err != nil {
		s.logger.Warn("summary count failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return summary
	}
	summary.TotalMessages = count

	recent, err := s.store.ListNewest(ctx, userID, limit, 0)
	if err != nil {
		s.logger.Warn("summary recent messages failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return summary
	}
	reverseDocuments(recent)
	summary.RecentMessages = message.ToMessages(recent)

	if first, found, err := s.store.Oldest(ctx, userID); err == nil && found {
		ts := message.FormatTimestamp(first.Timestamp)
		summary.FirstActivity = &ts
	} else if err != nil {
		s.logger.Warn("summary first activity failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
	}
	if last, found, err := s.store.Newest(ctx, userID); err == nil && found {
		ts := message.FormatTimestamp(last.Timestamp)
		summary.LastActivity = &ts
	} else if err != nil {
		s.logger.Warn("summary last activity failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
	}
	return summary
}

func reverseDocuments(docs []message.Document) {
	for i, j := 0, len(docs)-1; i < j; i, j = i+1, j-1 {
		docs[i], docs[j] = docs[j], docs[i]
	}
}
