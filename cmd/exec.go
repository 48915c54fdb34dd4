package cmd

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"

	"ticket-inventory/config"
	"ticket-inventory/internal/handlers"
	"ticket-inventory/internal/services"
	_ "ticket-inventory/migrations"
	"ticket-inventory/monitoring"
	"ticket-inventory/security"
	"ticket-inventory/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()
	slog.Info("Starting ticket inventory", "environment", cfg.Environment, "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis. The inventory works without it, only slower.
	redisClient, err := utils.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Warn("Redis unavailable, ticket cache and rate limiting disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// Initialize PubNub
	pn := newPubNub(cfg)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	app.RootCmd.AddCommand(newStatsCommand(app, cfg))

	if len(os.Args) == 1 {
		app.RootCmd.SetArgs([]string{"serve", "--http", "0.0.0.0:" + cfg.Port})
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		var monitor *monitoring.Monitor
		if cfg.EnableMetrics {
			monitor = monitoring.NewMonitor(cfg.StatsRefreshInterval)
		}

		var breaker *utils.CircuitBreaker
		if redisClient != nil && cfg.Ticket.CacheEnabled {
			breaker = newCacheBreaker(cfg, monitor)
		}

		store := newTicketStore(app, cfg, redisClient, breaker, pn, monitor)
		if monitor != nil {
			go monitor.Run(ctx, store)
		}

		// Ticket endpoints
		var purchaseGuards []func(*core.RequestEvent) error
		if redisClient != nil {
			limiter := security.NewRateLimiter(redisClient, cfg.PurchaseRateLimit, cfg.PurchaseRateWindow)
			purchaseGuards = append(purchaseGuards, limiter.PurchaseRateLimit)
		}
		handlers.NewTicketHandler(store).Register(e.Router, purchaseGuards...)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if _, err := app.DB().NewQuery("SELECT 1").WithContext(e.Request.Context()).Execute(); err != nil {
				return e.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			if redisClient != nil {
				if err := utils.RedisHealthCheck(e.Request.Context(), redisClient); err != nil {
					return e.JSON(http.StatusServiceUnavailable, map[string]string{
						"status": "unhealthy",
						"error":  err.Error(),
					})
				}
			}

			body := map[string]any{"status": "healthy"}
			if breaker != nil {
				body["cache"] = breakerHealth(breaker)
			}
			return e.JSON(http.StatusOK, body)
		})

		if cfg.EnableMetrics {
			e.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

func newPubNub(cfg *config.Config) *pubnub.PubNub {
	if cfg.PubNubPublishKey == "" {
		slog.Info("PubNub publish key not set, ticket events disabled")
		return nil
	}

	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey
	pnConfig.UUID = cfg.PubNubUserID
	if pnConfig.UUID == "" {
		pnConfig.UUID = "ticket-inventory-" + uuid.NewString()
	}

	return pubnub.NewPubNub(pnConfig)
}

// newCacheBreaker builds the breaker guarding the ticket cache and mirrors
// its state into the metrics.
func newCacheBreaker(cfg *config.Config, monitor *monitoring.Monitor) *utils.CircuitBreaker {
	breaker := utils.NewCircuitBreakerWithSettings("ticket-cache", utils.BreakerSettings{
		MaxRequests:  cfg.BreakerMaxRequests,
		Interval:     cfg.BreakerInterval,
		Timeout:      cfg.BreakerTimeout,
		FailureRatio: cfg.BreakerFailureRatio,
		OnStateChange: func(name string, _, to utils.State) {
			monitor.TrackBreakerState(name, to)
		},
	})
	monitor.TrackBreakerState(breaker.Name(), breaker.State())
	return breaker
}

func breakerHealth(breaker *utils.CircuitBreaker) map[string]any {
	counts := breaker.Counts()
	return map[string]any{
		"breaker":  breaker.Name(),
		"state":    breaker.State().String(),
		"requests": counts.Requests,
		"failures": counts.TotalFailures,
	}
}

// newTicketStore wires the store to the app database and whichever optional
// backends are configured. A nil breaker leaves the cache off.
func newTicketStore(app core.App, cfg *config.Config, redisClient *redis.Client, breaker *utils.CircuitBreaker, pn *pubnub.PubNub, monitor *monitoring.Monitor) *services.TicketStore {
	opts := []services.StoreOption{services.WithMonitor(monitor)}

	if redisClient != nil && breaker != nil {
		opts = append(opts, services.WithCache(services.NewTicketCache(redisClient, cfg.Ticket.CacheTTL, breaker)))
	}
	if pn != nil {
		opts = append(opts, services.WithPublisher(services.NewPubNubPublisher(pn)))
	}

	return services.NewTicketStore(app.DB(), cfg.Ticket, opts...)
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
