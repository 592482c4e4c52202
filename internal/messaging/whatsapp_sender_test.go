package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatsAppSenderSendText(t *testing.T) {
	var got whatsappTextPayload
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewWhatsAppSender("token-abc", "phone-1", nil).WithBaseURL(srv.URL)
	err := sender.SendText(context.Background(), "+65 8123 4567", "See you Saturday!")
	require.NoError(t, err)

	assert.Equal(t, "Bearer token-abc", auth)
	assert.Equal(t, "/phone-1/messages", path)
	assert.Equal(t, "whatsapp", got.MessagingProduct)
	assert.Equal(t, "+6581234567", got.To)
	assert.Equal(t, "See you Saturday!", got.Text.Body)
}

func TestWhatsAppSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	sender := NewWhatsAppSender("bad", "phone-1", nil).WithBaseURL(srv.URL)
	err := sender.SendText(context.Background(), "+65", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
