package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	ScraperBaseURL string

	// WhatsApp Cloud API
	WhatsAppVerifyToken string
	WhatsAppAccessToken string
	WhatsAppPhoneID     string
	DefaultUserID       string

	// LLM (Bedrock)
	AWSRegion      string
	BedrockModelID string
	LLMTimeout     time.Duration

	// Concierge behavior
	Timezone             string
	ViewingDurationMins  int
	HistoryWindow        int
	ScreeningMaxFields   int
	ConversationTTL      time.Duration
	DashboardCORSOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ScraperBaseURL: getEnv("SCRAPER_BASE_URL", ""),
		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),

		WhatsAppVerifyToken: getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppAccessToken: getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneID:     getEnv("WHATSAPP_PHONE_ID", ""),
		DefaultUserID:       getEnv("DEFAULT_USER_ID", ""),

		AWSRegion:      getEnv("AWS_REGION", "ap-southeast-1"),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),

		Timezone:             getEnv("CONCIERGE_TIMEZONE", "Asia/Singapore"),
		ViewingDurationMins:  getEnvAsInt("VIEWING_DURATION_MINS", 45),
		HistoryWindow:        getEnvAsInt("HISTORY_WINDOW", 20),
		ScreeningMaxFields:   getEnvAsInt("SCREENING_MAX_FIELDS", 6),
		ConversationTTL:      getEnvAsDuration("CONVERSATION_TTL", 0),
		DashboardCORSOrigins: getEnvAsSlice("DASHBOARD_CORS_ORIGINS"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
