package message

import (
	"strings"
	"testing"
	"time"
)

func TestSessionID(t *testing.T) {
	t.Parallel()

	if got := SessionID("+212600000001"); got != "+212600000001_session" {
		t.Fatalf("unexpected session id %q", got)
	}
}

func TestNewDocumentDefaults(t *testing.T) {
	t.Parallel()

	doc := NewDocument(AppendInput{
		UserID: "u1",
		Text:   "hello",
		Sender: SenderUser,
	})
	if doc.SessionID != "u1_session" {
		t.Fatalf("expected derived session, got %q", doc.SessionID)
	}
	if doc.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be filled in")
	}
	if doc.Timestamp.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", doc.Timestamp.Location())
	}
}

func TestNewDocumentExplicitSession(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))
	doc := NewDocument(AppendInput{
		UserID:    "u1",
		Text:      "hello",
		Sender:    SenderAgent,
		Timestamp: ts,
		SessionID: "custom",
	})
	if doc.SessionID != "custom" {
		t.Fatalf("explicit session lost: %q", doc.SessionID)
	}
	if doc.Timestamp.Hour() != 11 {
		t.Fatalf("expected timestamp normalized to UTC, got %v", doc.Timestamp)
	}
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 1, 12, 30, 45, 123456789, time.FixedZone("CET", 3600))
	got := FormatTimestamp(ts)
	if !strings.HasSuffix(got, "Z") {
		t.Fatalf("expected trailing Z, got %q", got)
	}
	if !strings.HasPrefix(got, "2025-03-01T11:30:45") {
		t.Fatalf("expected UTC rendering, got %q", got)
	}
}

func TestToMessagesPreservesOrder(t *testing.T) {
	t.Parallel()

	docs := []Document{
		{UserID: "u1", Message: "first", Sender: SenderUser, Timestamp: time.Now()},
		{UserID: "u1", Message: "second", Sender: SenderAgent, Timestamp: time.Now()},
	}
	messages := ToMessages(docs)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Message != "first" || messages[1].Message != "second" {
		t.Fatalf("order not preserved: %+v", messages)
	}
}

func TestToMessagesEmpty(t *testing.T) {
	t.Parallel()

	messages := ToMessages(nil)
	if messages == nil {
		t.Fatal("expected non-nil slice for empty input")
	}
	if len(messages) != 0 {
		t.Fatalf("expected empty slice, got %d entries", len(messages))
	}
}
