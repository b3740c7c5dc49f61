package message

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Document is the persisted shape of a single conversation message.
// Documents are append-only: they are never updated or deleted.
type Document struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Message   string             `bson:"message"`
	Sender    Sender             `bson:"sender"`
	Timestamp time.Time          `bson:"timestamp"`
	SessionID string             `bson:"session_id"`
	AudioURL  string             `bson:"audio_url,omitempty"`
	MediaType string             `bson:"media_type,omitempty"`
}

// Message is the JSON read shape of a Document. Timestamps are
// serialized as UTC with an explicit trailing "Z".
type Message struct {
	ID        string `json:"_id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	Sender    Sender `json:"sender"`
	Timestamp string `json:"timestamp"`
	SessionID string `json:"session_id"`
	AudioURL  string `json:"audio_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// AppendInput describes one message turn to persist.
type AppendInput struct {
	UserID    string
	Text      string
	Sender    Sender
	Timestamp time.Time
	SessionID string
	AudioURL  string
	MediaType string
}

// SessionID derives the fixed per-user session key. Every message of a
// user lives in this one long-lived session unless a session is
// supplied explicitly.
func SessionID(userID string) string {
	return userID + "_session"
}

// NewDocument builds the persisted document for an append, filling in
// the derived session and normalizing the timestamp to UTC.
func NewDocument(input AppendInput) Document {
	ts := input.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		sessionID = SessionID(input.UserID)
	}
	return Document{
		UserID:    input.UserID,
		Message:   input.Text,
		Sender:    input.Sender,
		Timestamp: ts.UTC(),
		SessionID: sessionID,
		AudioURL:  input.AudioURL,
		MediaType: input.MediaType,
	}
}

// FormatTimestamp renders a store timestamp for API output.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ToMessage converts a persisted document to its read shape.
func ToMessage(doc Document) Message {
	return Message{
		ID:        doc.ID.Hex(),
		UserID:    doc.UserID,
		Message:   doc.Message,
		Sender:    doc.Sender,
		Timestamp: FormatTimestamp(doc.Timestamp),
		SessionID: doc.SessionID,
		AudioURL:  doc.AudioURL,
		MediaType: doc.MediaType,
	}
}

// ToMessages converts documents preserving order.
func ToMessages(docs []Document) []Message {
	messages := make([]Message, 0, len(docs))
	for _, doc := range docs {
		messages = append(messages, ToMessage(doc))
	}
	return messages
}
