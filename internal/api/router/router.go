package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oneviewsg/rental-ai-platform/internal/conversation"
	httpmiddleware "github.com/oneviewsg/rental-ai-platform/internal/http/middleware"
	"github.com/oneviewsg/rental-ai-platform/internal/messaging"
	"github.com/oneviewsg/rental-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	WhatsAppWebhook     *messaging.WebhookHandler
	ConversationHandler *conversation.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// Requests per second allowed per IP on the public webhook. Zero
	// disables rate limiting.
	WebhookRateLimit float64
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if cfg.WhatsAppWebhook != nil {
		r.Route("/webhooks/whatsapp", func(wh chi.Router) {
			if cfg.WebhookRateLimit > 0 {
				wh.Use(httpmiddleware.RateLimit(cfg.WebhookRateLimit, int(cfg.WebhookRateLimit)*2))
			}
			wh.Get("/", cfg.WhatsAppWebhook.Verify)
			wh.Post("/", cfg.WhatsAppWebhook.Inbound)
		})
	}

	if cfg.ConversationHandler != nil {
		r.Post("/api/lead-agent", cfg.ConversationHandler.ProcessMessage)
	}

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
