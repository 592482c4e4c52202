package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/oneviewsg/rental-ai-platform/internal/conversation"
	"github.com/oneviewsg/rental-ai-platform/internal/observability/metrics"
	"github.com/oneviewsg/rental-ai-platform/internal/prospects"
	"github.com/oneviewsg/rental-ai-platform/pkg/logging"
)

// TurnProcessor runs one conversation turn for an inbound message.
type TurnProcessor interface {
	ProcessMessage(ctx context.Context, userID, prospectPhone, message string) (*conversation.TurnResult, error)
}

// UserResolver maps the receiving WhatsApp business phone number id to the
// platform user who owns it.
type UserResolver interface {
	ResolveUserID(ctx context.Context, phoneNumberID string) (string, error)
}

// StaticUserResolver maps every inbound message to one user, for single
// tenant deployments and tests.
type StaticUserResolver string

// ResolveUserID implements UserResolver.
func (s StaticUserResolver) ResolveUserID(_ context.Context, _ string) (string, error) {
	if s == "" {
		return "", errors.New("messaging: no user configured")
	}
	return string(s), nil
}

// WebhookHandler receives WhatsApp Cloud API callbacks and drives the
// conversation engine.
type WebhookHandler struct {
	verifyToken string
	engine      TurnProcessor
	users       UserResolver
	prospects   prospects.Repository
	sender      Sender
	metrics     *metrics.MessagingMetrics
	logger      *logging.Logger
}

// NewWebhookHandler creates the WhatsApp webhook handler. Metrics and
// prospects may be nil.
func NewWebhookHandler(verifyToken string, engine TurnProcessor, users UserResolver, prospectRepo prospects.Repository, sender Sender, m *metrics.MessagingMetrics, logger *logging.Logger) *WebhookHandler {
	if engine == nil {
		panic("messaging: turn processor cannot be nil")
	}
	if users == nil {
		panic("messaging: user resolver cannot be nil")
	}
	if sender == nil {
		sender = NewNoopSender(logger)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		verifyToken: verifyToken,
		engine:      engine,
		users:       users,
		prospects:   prospectRepo,
		sender:      sender,
		metrics:     m,
		logger:      logger,
	}
}

// Verify handles GET /webhooks/whatsapp, the Cloud API subscription
// handshake.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.verifyToken && h.verifyToken != "" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// Cloud API webhook payload, reduced to the fields the concierge uses.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Messages []struct {
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// Inbound handles POST /webhooks/whatsapp. Each text message becomes one
// conversation turn; the reply goes back out through the sender. The
// endpoint always acknowledges with 200 once the payload parses, since the
// Cloud API retries non-2xx deliveries.
func (h *WebhookHandler) Inbound(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Error("failed to parse whatsapp webhook", "error", err)
		h.metrics.ObserveInbound("message", "bad_payload")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			userID, err := h.users.ResolveUserID(ctx, change.Value.Metadata.PhoneNumberID)
			if err != nil {
				h.logger.Warn("no user for phone number id", "phone_number_id", change.Value.Metadata.PhoneNumberID, "error", err)
				h.metrics.ObserveInbound("message", "unknown_user")
				continue
			}
			for _, msg := range change.Value.Messages {
				if msg.Type != "text" || strings.TrimSpace(msg.Text.Body) == "" {
					h.metrics.ObserveInbound(msg.Type, "skipped")
					continue
				}
				h.processOne(ctx, userID, NormalizeE164(msg.From), msg.Text.Body)
			}
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) processOne(ctx context.Context, userID, from, body string) {
	if h.prospects != nil {
		if _, err := h.prospects.Ensure(ctx, userID, from); err != nil {
			h.logger.Warn("prospect upsert failed", "user_id", userID, "error", err)
		}
	}

	res, err := h.engine.ProcessMessage(ctx, userID, from, body)
	if err != nil {
		h.logger.Error("turn processing failed", "user_id", userID, "prospect", MaskPhone(from), "error", err)
		h.metrics.ObserveInbound("message", "turn_error")
		return
	}
	h.metrics.ObserveInbound("message", "ok")

	if err := h.sender.SendText(ctx, from, res.Reply); err != nil {
		h.logger.Error("reply delivery failed", "user_id", userID, "prospect", MaskPhone(from), "error", err)
		h.metrics.ObserveOutbound("error")
		return
	}
	h.metrics.ObserveOutbound("sent")
}
