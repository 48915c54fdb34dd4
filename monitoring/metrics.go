package monitoring

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ticket-inventory/internal/status"
	"ticket-inventory/models"
	"ticket-inventory/utils"
)

var (
	ticketOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_operations_total",
			Help: "Total ticket store operations",
		},
		[]string{"operation", "status"},
	)

	ticketOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticket_operation_duration_seconds",
			Help:    "Duration of ticket store operations",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"operation"},
	)

	ticketsPurchased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_purchased_total",
			Help: "Total ticket units sold",
		},
	)

	purchaseRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_purchase_rejections_total",
			Help: "Purchases refused by a precondition",
		},
		[]string{"reason"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_cache_lookups_total",
			Help: "Ticket cache lookups by result",
		},
		[]string{"result"},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
		[]string{"name"},
	)

	inventory = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ticket_inventory",
			Help: "Aggregate ticket inventory from the last stats refresh",
		},
		[]string{"kind"},
	)
)

// StatsSource is implemented by the ticket store.
type StatsSource interface {
	Stats(ctx context.Context) (*models.TicketStats, error)
}

// Monitor records store metrics. A nil *Monitor is valid and records nothing.
type Monitor struct {
	interval time.Duration
}

func NewMonitor(interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{interval: interval}
}

// Run refreshes the inventory gauges from source until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, source StatsSource) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Collect(ctx, source)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Collect(ctx, source)
		}
	}
}

func (m *Monitor) Collect(ctx context.Context, source StatsSource) {
	stats, err := source.Stats(ctx)
	if err != nil {
		slog.Error("Failed to collect ticket stats", "error", err)
		return
	}

	inventory.WithLabelValues("tickets").Set(float64(stats.TotalTickets))
	inventory.WithLabelValues("released").Set(float64(stats.ReleasedTickets))
	inventory.WithLabelValues("sold_out").Set(float64(stats.SoldOutTickets))
	inventory.WithLabelValues("expired").Set(float64(stats.ExpiredTickets))
	inventory.WithLabelValues("quantity_total").Set(float64(stats.TotalQuantity))
	inventory.WithLabelValues("quantity_sold").Set(float64(stats.TotalSold))
	inventory.WithLabelValues("quantity_available").Set(float64(stats.TotalAvailable))
}

// Track ticket store operations
func (m *Monitor) TrackOperation(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	ticketOperations.WithLabelValues(operation, Outcome(err)).Inc()
	ticketOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Monitor) TrackPurchase(quantity int) {
	if m == nil {
		return
	}
	ticketsPurchased.Add(float64(quantity))
}

func (m *Monitor) TrackPurchaseRejection(err error) {
	if m == nil || !status.IsPurchaseRejection(err) {
		return
	}
	purchaseRejections.WithLabelValues(RejectionReason(err)).Inc()
}

func (m *Monitor) TrackCacheLookup(result string) {
	if m == nil {
		return
	}
	cacheLookups.WithLabelValues(result).Inc()
}

func (m *Monitor) TrackBreakerState(name string, state utils.State) {
	if m == nil {
		return
	}
	breakerState.WithLabelValues(name).Set(float64(state))
}

// Outcome maps an operation error onto the status label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, status.ErrTicketNotFound):
		return "not_found"
	case status.IsPurchaseRejection(err):
		return "rejected"
	case errors.Is(err, status.ErrPersistence):
		return "error"
	}
	return "invalid"
}

func RejectionReason(err error) string {
	switch {
	case errors.Is(err, status.ErrTicketNotEnabled):
		return "not_enabled"
	case errors.Is(err, status.ErrTicketNotReleased):
		return "not_released"
	case errors.Is(err, status.ErrTicketExpired):
		return "expired"
	case errors.Is(err, status.ErrInsufficientStock):
		return "insufficient_stock"
	}
	return "other"
}
