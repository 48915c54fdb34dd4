package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string

	// Ticket store
	Ticket TicketConfig

	// Circuit breaker guarding the ticket cache
	BreakerMaxRequests  uint32
	BreakerInterval     time.Duration
	BreakerTimeout      time.Duration
	BreakerFailureRatio float64

	// Purchase rate limiting, per client IP and ticket
	PurchaseRateLimit  int
	PurchaseRateWindow time.Duration

	// Monitoring
	EnableMetrics        bool
	StatsRefreshInterval time.Duration
}

// TicketConfig is handed to the ticket store by the composition root.
type TicketConfig struct {
	CacheEnabled   bool
	CacheTTL       time.Duration
	EventsChannel  string
	MaxPurchaseQty int
}

// DefaultTicketConfig mirrors the env defaults of LoadConfig.
func DefaultTicketConfig() TicketConfig {
	return TicketConfig{
		CacheEnabled:   true,
		CacheTTL:       5 * time.Minute,
		EventsChannel:  "tickets",
		MaxPurchaseQty: 0,
	}
}

// LoadConfig reads the environment once. A .env file in the working
// directory is loaded first when present; real env vars win over it.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	defaults := DefaultTicketConfig()

	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", ""),

		// Tickets
		Ticket: TicketConfig{
			CacheEnabled:   getEnvAsBool("TICKET_CACHE_ENABLED", defaults.CacheEnabled),
			CacheTTL:       getEnvAsDuration("TICKET_CACHE_TTL", "5m"),
			EventsChannel:  getEnv("TICKET_EVENTS_CHANNEL", defaults.EventsChannel),
			MaxPurchaseQty: getEnvAsInt("TICKET_MAX_PURCHASE_QTY", defaults.MaxPurchaseQty),
		},

		// Circuit breaker
		BreakerMaxRequests:  uint32(getEnvAsInt("CACHE_BREAKER_MAX_REQUESTS", 100)),
		BreakerInterval:     getEnvAsDuration("CACHE_BREAKER_INTERVAL", "60s"),
		BreakerTimeout:      getEnvAsDuration("CACHE_BREAKER_TIMEOUT", "30s"),
		BreakerFailureRatio: getEnvAsFloat("CACHE_BREAKER_FAILURE_RATIO", 0.6),

		// Rate limiting
		PurchaseRateLimit:  getEnvAsInt("PURCHASE_RATE_LIMIT", 30),
		PurchaseRateWindow: getEnvAsDuration("PURCHASE_RATE_WINDOW", "1m"),

		// Monitoring
		EnableMetrics:        getEnvAsBool("ENABLE_METRICS", true),
		StatsRefreshInterval: getEnvAsDuration("STATS_REFRESH_INTERVAL", "30s"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
