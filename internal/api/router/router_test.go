package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneviewsg/rental-ai-platform/internal/conversation"
	"github.com/oneviewsg/rental-ai-platform/internal/messaging"
)

type echoEngine struct{}

func (echoEngine) ProcessMessage(_ context.Context, _, _, message string) (*conversation.TurnResult, error) {
	return &conversation.TurnResult{Reply: "echo: " + message, Phase: conversation.RouteRespond}, nil
}

type dropSender struct{}

func (dropSender) SendText(_ context.Context, _, _ string) error { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	webhook := messaging.NewWebhookHandler("verify-me", echoEngine{}, messaging.StaticUserResolver("user-1"), nil, dropSender{}, nil, nil)
	return New(&Config{WhatsAppWebhook: webhook})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestWebhookVerifyRouted(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=777", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "777", rec.Body.String())
}

func TestWebhookInboundRouted(t *testing.T) {
	r := newTestRouter(t)

	payload := `{"entry":[{"changes":[{"value":{"metadata":{"phone_number_id":"biz"},"messages":[{"from":"6581234567","type":"text","text":{"body":"hello"}}]}}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRouteIs404(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
