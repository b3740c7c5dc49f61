package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sobrus/chatrelay/internal/config"
)

func TestInvokeContentField(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/run" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload["user_id"] != "u1" || payload["session_id"] != "u1_session" {
			t.Errorf("unexpected identity fields: %v", payload)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"content": "Bonjour"})
	}))
	defer srv.Close()

	client := NewClient(config.AgentConfig{BaseURL: srv.URL})
	reply, err := client.Invoke(context.Background(), InvokeInput{
		Text:      "salut",
		UserID:    "u1",
		SessionID: "u1_session",
	})
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if reply.Text() != "Bonjour" {
		t.Fatalf("expected content field, got %q", reply.Text())
	}
}

func TestInvokeRawFallback(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain answer"))
	}))
	defer srv.Close()

	client := NewClient(config.AgentConfig{BaseURL: srv.URL})
	reply, err := client.Invoke(context.Background(), InvokeInput{Text: "hi", UserID: "u1"})
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if reply.Text() != "plain answer" {
		t.Fatalf("expected raw body, got %q", reply.Text())
	}
}

func TestInvokeGatewayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(config.AgentConfig{BaseURL: srv.URL})
	if _, err := client.Invoke(context.Background(), InvokeInput{Text: "hi", UserID: "u1"}); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestInvokeNotConfigured(t *testing.T) {
	t.Parallel()

	client := NewClient(config.AgentConfig{})
	_, err := client.Invoke(context.Background(), InvokeInput{Text: "hi", UserID: "u1"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestReplyTextPrefersContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply Reply
		want  string
	}{
		{name: "content set", reply: Reply{content: "a", raw: "b"}, want: "a"},
		{name: "blank content", reply: Reply{content: "  ", raw: "b"}, want: "b"},
		{name: "raw only", reply: Reply{raw: "b"}, want: "b"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.reply.Text(); got != tt.want {
				t.Fatalf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}
