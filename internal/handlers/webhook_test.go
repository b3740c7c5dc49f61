package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sobrus/chatrelay/internal/delivery"
	"github.com/sobrus/chatrelay/internal/webhook"
)

type recordingProcessor struct {
	seen []webhook.Inbound
	resp delivery.Response
}

func (r *recordingProcessor) Handle(_ context.Context, in webhook.Inbound) delivery.Response {
	r.seen = append(r.seen, in)
	return r.resp
}

func postWebhook(t *testing.T, handler *WebhookHandler, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	if err := handler.Receive(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestReceiveFormPayload(t *testing.T) {
	t.Parallel()

	processor := &recordingProcessor{resp: delivery.Response{StatusCode: http.StatusNoContent}}
	handler := NewWebhookHandler(slog.Default(), processor)

	form := url.Values{}
	form.Set("From", "whatsapp:+212600000001")
	form.Set("Body", "salut")
	form.Set("MediaUrl0", "https://provider/media/1")
	form.Set("MediaContentType0", "audio/ogg")

	rec := postWebhook(t, handler, echo.MIMEApplicationForm, form.Encode())
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(processor.seen) != 1 {
		t.Fatalf("expected one event, got %d", len(processor.seen))
	}
	in := processor.seen[0]
	if in.From != "whatsapp:+212600000001" || in.Body != "salut" {
		t.Fatalf("form fields not parsed: %+v", in)
	}
	if in.MediaURL != "https://provider/media/1" || in.MediaContentType != "audio/ogg" {
		t.Fatalf("media fields not parsed: %+v", in)
	}
}

func TestReceiveJSONPayload(t *testing.T) {
	t.Parallel()

	processor := &recordingProcessor{resp: delivery.Response{
		StatusCode:  http.StatusOK,
		ContentType: "application/xml",
		Body:        "<Response></Response>",
	}}
	handler := NewWebhookHandler(slog.Default(), processor)

	rec := postWebhook(t, handler, echo.MIMEApplicationJSON, `{"From":"whatsapp:+1","Body":"bonjour"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "application/xml") {
		t.Fatalf("expected xml content type, got %q", ct)
	}
	if rec.Body.String() != "<Response></Response>" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if len(processor.seen) != 1 || processor.seen[0].Body != "bonjour" {
		t.Fatalf("json fields not parsed: %+v", processor.seen)
	}
}

func TestReceiveMalformedBodyStillAnswers(t *testing.T) {
	t.Parallel()

	processor := &recordingProcessor{resp: delivery.Response{
		StatusCode:  http.StatusOK,
		ContentType: "text/plain",
		Body:        "Missing user_id or message",
	}}
	handler := NewWebhookHandler(slog.Default(), processor)

	rec := postWebhook(t, handler, echo.MIMEApplicationJSON, `{broken`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(processor.seen) != 1 {
		t.Fatalf("expected one (empty) event, got %d", len(processor.seen))
	}
	if processor.seen[0] != (webhook.Inbound{}) {
		t.Fatalf("expected empty event, got %+v", processor.seen[0])
	}
}
