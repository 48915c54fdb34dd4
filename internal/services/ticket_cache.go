package services

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"ticket-inventory/models"
	"ticket-inventory/utils"
)

const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheError   = "error"
	CacheSkipped = "skipped"
)

// TicketCache is a read-through cache for key lookups. Failures are logged and
// reported as misses; the database stays the source of truth.
type TicketCache struct {
	Redis   *redis.Client
	ttl     time.Duration
	breaker *utils.CircuitBreaker
}

func NewTicketCache(redisClient *redis.Client, ttl time.Duration, breaker *utils.CircuitBreaker) *TicketCache {
	if breaker == nil {
		breaker = utils.NewCircuitBreaker("ticket-cache")
	}
	return &TicketCache{
		Redis:   redisClient,
		ttl:     ttl,
		breaker: breaker,
	}
}

// ticketCacheKey hashes the public key so Redis keys stay short.
func ticketCacheKey(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return "ticket:key:" + hex.EncodeToString(sum[:])
}

// cacheEntry is the stored value. A deleted entry marks a removed ticket so
// a late write from an earlier read cannot bring it back.
type cacheEntry struct {
	*models.Ticket
	Deleted bool `json:"deleted,omitempty"`
}

// storeNewerScript writes ARGV[1] unless the entry already holds a deleted
// marker or a higher row version than ARGV[2]. ARGV[3] is the TTL in
// milliseconds, 0 for none.
var storeNewerScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current then
	local ok, entry = pcall(cjson.decode, current)
	if ok and type(entry) == 'table' then
		if entry['deleted'] then
			return 0
		end
		local version = tonumber(entry['version'])
		if version and version > tonumber(ARGV[2]) then
			return 0
		end
	end
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// Get returns the cached ticket and the lookup result label.
func (c *TicketCache) Get(ctx context.Context, key string) (*models.Ticket, string) {
	var data []byte
	err := c.breaker.Execute(func() error {
		b, err := c.Redis.Get(ctx, ticketCacheKey(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		data = b
		return err
	})
	if errors.Is(err, utils.ErrBreakerOpen) || errors.Is(err, utils.ErrBreakerTooManyRequests) {
		return nil, CacheSkipped
	}
	if err != nil {
		slog.Warn("Failed to read ticket from cache", "error", err)
		return nil, CacheError
	}
	if data == nil {
		return nil, CacheMiss
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		slog.Warn("Dropping undecodable cached ticket", "error", err)
		c.Invalidate(ctx, key)
		return nil, CacheError
	}
	if entry.Deleted || entry.Ticket == nil {
		return nil, CacheMiss
	}
	return entry.Ticket, CacheHit
}

// Set stores ticket unless the cache already holds a newer version of it.
// It reports whether the entry was written.
func (c *TicketCache) Set(ctx context.Context, ticket *models.Ticket) bool {
	data, err := json.Marshal(cacheEntry{Ticket: ticket})
	if err != nil {
		slog.Warn("Failed to encode ticket for cache", "error", err, "ticket_id", ticket.ID)
		return false
	}

	var stored bool
	err = c.breaker.Execute(func() error {
		n, err := storeNewerScript.Run(ctx, c.Redis,
			[]string{ticketCacheKey(ticket.Uni256)},
			string(data), ticket.Version, c.ttl.Milliseconds(),
		).Int()
		stored = n == 1
		return err
	})
	if err != nil {
		slog.Warn("Failed to write ticket to cache", "error", err, "ticket_id", ticket.ID)
		return false
	}
	if !stored {
		slog.Debug("Skipped caching an older ticket version", "ticket_id", ticket.ID, "version", ticket.Version)
	}
	return stored
}

// Forget replaces the entry with a deleted marker that lives for one TTL.
func (c *TicketCache) Forget(ctx context.Context, key string) {
	data, _ := json.Marshal(cacheEntry{Deleted: true})

	err := c.breaker.Execute(func() error {
		return c.Redis.Set(ctx, ticketCacheKey(key), data, c.ttl).Err()
	})
	if err != nil {
		slog.Warn("Failed to mark cached ticket deleted", "error", err)
	}
}

func (c *TicketCache) Invalidate(ctx context.Context, key string) {
	err := c.breaker.Execute(func() error {
		return c.Redis.Del(ctx, ticketCacheKey(key)).Err()
	})
	if err != nil {
		slog.Warn("Failed to invalidate cached ticket", "error", err)
	}
}
