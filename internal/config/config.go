package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	// Vapi voice provider
	VapiBaseURL string
	VapiAPIKey  string

	// Webhook ingestion
	WebhookQueueSize     int
	ReconcileWorkers     int
	TranscriptRetryDelay time.Duration

	// Bulk sync
	SyncDefaultLimit int
	SyncMaxLimit     int

	// Idempotency cache
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool
	DuplicateCacheTTL time.Duration

	// Transcript analysis
	AWSRegion       string
	BedrockModelID  string
	AnalysisEnabled bool
	AnalysisTimeout time.Duration

	AdminJWTSecret     string
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		VapiBaseURL: getEnv("VAPI_BASE_URL", "https://api.vapi.ai"),
		VapiAPIKey:  getEnv("VAPI_API_KEY", ""),

		WebhookQueueSize:     getEnvAsInt("WEBHOOK_QUEUE_SIZE", 256),
		ReconcileWorkers:     getEnvAsInt("RECONCILE_WORKERS", 4),
		TranscriptRetryDelay: getEnvAsDuration("TRANSCRIPT_RETRY_DELAY", 5*time.Second),

		SyncDefaultLimit: getEnvAsInt("SYNC_DEFAULT_LIMIT", 100),
		SyncMaxLimit:     getEnvAsInt("SYNC_MAX_LIMIT", 1000),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),
		DuplicateCacheTTL: getEnvAsDuration("DUPLICATE_CACHE_TTL", 6*time.Hour),

		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		BedrockModelID:  getEnv("BEDROCK_MODEL_ID", ""),
		AnalysisEnabled: getEnvAsBool("ANALYSIS_ENABLED", true),
		AnalysisTimeout: getEnvAsDuration("ANALYSIS_TIMEOUT", 30*time.Second),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS"),
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

// getEnvAsSlice retrieves a comma-separated environment variable.
func getEnvAsSlice(key string) []string {
	raw := getEnv(key, "")
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
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
