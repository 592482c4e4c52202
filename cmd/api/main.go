package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/oneviewsg/rental-ai-platform/internal/api/router"
	"github.com/oneviewsg/rental-ai-platform/internal/browser"
	"github.com/oneviewsg/rental-ai-platform/internal/calendar"
	appconfig "github.com/oneviewsg/rental-ai-platform/internal/config"
	"github.com/oneviewsg/rental-ai-platform/internal/conversation"
	"github.com/oneviewsg/rental-ai-platform/internal/messaging"
	"github.com/oneviewsg/rental-ai-platform/internal/observability/metrics"
	"github.com/oneviewsg/rental-ai-platform/internal/policy"
	"github.com/oneviewsg/rental-ai-platform/internal/properties"
	"github.com/oneviewsg/rental-ai-platform/internal/prospects"
	"github.com/oneviewsg/rental-ai-platform/internal/screening"
	"github.com/oneviewsg/rental-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting rental-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	// Postgres
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
	}

	// Redis
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	registry := prometheus.NewRegistry()
	convMetrics := metrics.NewConversationMetrics(registry)
	msgMetrics := metrics.NewMessagingMetrics(registry)

	// Bedrock-backed NLU, optional.
	var nlu *conversation.LLMNLU
	if cfg.BedrockModelID != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		bedrock := conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
		llm := conversation.NewFallbackLLMClient(bedrock, nil, convMetrics, logger)
		nlu = conversation.NewLLMNLU(llm, cfg.BedrockModelID, cfg.LLMTimeout, logger.Component("nlu"))
	} else {
		logger.Warn("BEDROCK_MODEL_ID not set, replies fall back to canned text")
	}

	// Repositories and services.
	var policyStore policy.Store
	var templates screening.TemplateStore
	var propertyRepo properties.Repository
	var appointmentStore calendar.Store
	var prospectRepo prospects.Repository
	if pool != nil {
		policyStore = policy.NewPostgresStore(pool)
		templates = screening.NewPostgresTemplateStore(pool)
		propertyRepo = properties.NewPostgresRepository(pool)
		appointmentStore = calendar.NewPostgresStore(pool)
		prospectRepo = prospects.NewPostgresRepository(pool)
	} else {
		policyStore = policy.NewMemoryStore()
		templates = screening.NewMemoryTemplateStore()
		propertyRepo = properties.NewMemoryRepository()
		appointmentStore = calendar.NewMemoryStore()
		prospectRepo = prospects.NewInMemoryRepository()
	}

	var scraper properties.Scraper
	if cfg.ScraperBaseURL != "" {
		scraper = browser.NewClient(cfg.ScraperBaseURL, browser.WithLogger(logger.Component("browser")))
	} else {
		logger.Warn("SCRAPER_BASE_URL not set, imported listings use placeholder titles")
	}

	resolver := policy.NewResolver(policyStore, logger.Component("policy"))
	questions := screening.NewProvider(templates, logger.Component("screening"))
	importer := properties.NewImporter(propertyRepo, scraper, logger.Component("properties"))
	bookings := calendar.NewService(appointmentStore, nil, logger.Component("calendar"))

	var replies conversation.ReplyGenerator
	var extractor conversation.AnswerExtractor
	if nlu != nil {
		replies = nlu
		extractor = nlu
	}

	handlers := conversation.NewHandlers(conversation.HandlersConfig{
		Questions: questions,
		Importer:  importer,
		PropRepo:  propertyRepo,
		Calendar:  bookings,
		Replies:   replies,
		Extractor: extractor,
		Location:  loc,
		Logger:    logger.Component("conversation"),
	})

	engine := conversation.NewEngine(conversation.EngineConfig{
		States:   conversation.NewRedisStateStore(redisClient, cfg.ConversationTTL),
		History:  conversation.NewRedisHistoryStore(redisClient, cfg.HistoryWindow, cfg.ConversationTTL),
		Resolver: resolver,
		Handlers: handlers,
		Metrics:  convMetrics,
		Logger:   logger.Component("engine"),
	})

	var sender messaging.Sender
	if cfg.WhatsAppAccessToken != "" && cfg.WhatsAppPhoneID != "" {
		sender = messaging.NewWhatsAppSender(cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneID, logger.Component("whatsapp"))
	} else {
		logger.Warn("WhatsApp credentials not set, outbound replies are logged only")
		sender = messaging.NewNoopSender(logger)
	}

	webhook := messaging.NewWebhookHandler(
		cfg.WhatsAppVerifyToken,
		engine,
		messaging.StaticUserResolver(cfg.DefaultUserID),
		prospectRepo,
		sender,
		msgMetrics,
		logger.Component("webhook"),
	)

	r := router.New(&router.Config{
		Logger:              logger,
		WhatsAppWebhook:     webhook,
		ConversationHandler: conversation.NewHandler(engine, logger.Component("api")),
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  cfg.DashboardCORSOrigins,
		WebhookRateLimit:    10,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
	logger.Info("server stopped")
}
