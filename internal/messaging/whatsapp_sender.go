package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oneviewsg/rental-ai-platform/pkg/logging"
)

// Sender delivers outbound WhatsApp messages.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
}

const graphAPIBase = "https://graph.facebook.com/v19.0"

// WhatsAppSender sends messages through the WhatsApp Cloud API.
type WhatsAppSender struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	phoneID     string
	logger      *logging.Logger
}

// NewWhatsAppSender creates a Cloud API sender for the given business phone
// number id.
func NewWhatsAppSender(accessToken, phoneID string, logger *logging.Logger) *WhatsAppSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &WhatsAppSender{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		baseURL:     graphAPIBase,
		accessToken: accessToken,
		phoneID:     phoneID,
		logger:      logger,
	}
}

// WithBaseURL points the sender at a different API host, used in tests.
func (s *WhatsAppSender) WithBaseURL(base string) *WhatsAppSender {
	s.baseURL = base
	return s
}

type whatsappTextPayload struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

// SendText implements Sender.
func (s *WhatsAppSender) SendText(ctx context.Context, to, body string) error {
	payload := whatsappTextPayload{
		MessagingProduct: "whatsapp",
		To:               NormalizeE164(to),
		Type:             "text",
	}
	payload.Text.Body = body

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("messaging: encode send payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.baseURL, s.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("messaging: build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("messaging: whatsapp send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("messaging: whatsapp send returned %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}

// NoopSender logs outbound messages instead of delivering them, for local
// development without WhatsApp credentials.
type NoopSender struct {
	logger *logging.Logger
}

func NewNoopSender(logger *logging.Logger) *NoopSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &NoopSender{logger: logger}
}

// SendText implements Sender.
func (s *NoopSender) SendText(_ context.Context, to, body string) error {
	s.logger.Info("outbound message suppressed (no sender configured)", "to", to, "body", body)
	return nil
}
