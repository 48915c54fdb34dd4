package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := LoadConfig()

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "localhost:6379", cfg.RedisURL)
	assert.Equal(t, DefaultTicketConfig(), cfg.Ticket)
	assert.Equal(t, uint32(100), cfg.BreakerMaxRequests)
	assert.Equal(t, 30*time.Second, cfg.BreakerTimeout)
	assert.Equal(t, 0.6, cfg.BreakerFailureRatio)
	assert.True(t, cfg.EnableMetrics)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("PORT", "9000")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("TICKET_CACHE_ENABLED", "false")
	t.Setenv("TICKET_CACHE_TTL", "90s")
	t.Setenv("TICKET_EVENTS_CHANNEL", "box-office")
	t.Setenv("TICKET_MAX_PURCHASE_QTY", "8")
	t.Setenv("CACHE_BREAKER_FAILURE_RATIO", "0.25")
	t.Setenv("STATS_REFRESH_INTERVAL", "1m")

	cfg := LoadConfig()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.False(t, cfg.Ticket.CacheEnabled)
	assert.Equal(t, 90*time.Second, cfg.Ticket.CacheTTL)
	assert.Equal(t, "box-office", cfg.Ticket.EventsChannel)
	assert.Equal(t, 8, cfg.Ticket.MaxPurchaseQty)
	assert.Equal(t, 0.25, cfg.BreakerFailureRatio)
	assert.Equal(t, time.Minute, cfg.StatsRefreshInterval)
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("REDIS_DB", "zero")
	t.Setenv("TICKET_CACHE_TTL", "forever")
	t.Setenv("ENABLE_METRICS", "maybe")

	cfg := LoadConfig()

	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 5*time.Minute, cfg.Ticket.CacheTTL)
	assert.True(t, cfg.EnableMetrics)
}
