package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"

	"ticket-inventory/config"
	"ticket-inventory/internal/status"
	"ticket-inventory/models"
	"ticket-inventory/monitoring"
	"ticket-inventory/utils"
)

// TicketStore owns the tickets table. It is safe for concurrent use; all
// coordination between callers happens in the database.
type TicketStore struct {
	db        dbx.Builder
	cfg       config.TicketConfig
	cache     *TicketCache
	publisher TicketPublisher
	monitor   *monitoring.Monitor
	now       func() time.Time
}

type StoreOption func(*TicketStore)

func WithCache(cache *TicketCache) StoreOption {
	return func(s *TicketStore) { s.cache = cache }
}

func WithPublisher(publisher TicketPublisher) StoreOption {
	return func(s *TicketStore) { s.publisher = publisher }
}

func WithMonitor(monitor *monitoring.Monitor) StoreOption {
	return func(s *TicketStore) { s.monitor = monitor }
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *TicketStore) { s.now = now }
}

func NewTicketStore(db dbx.Builder, cfg config.TicketConfig, opts ...StoreOption) *TicketStore {
	if cfg.EventsChannel == "" {
		cfg.EventsChannel = "tickets"
	}

	s := &TicketStore{
		db:  db,
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TicketStore) timestamp() types.DateTime {
	dt, _ := types.ParseDateTime(s.now().UTC())
	return dt
}

func (s *TicketStore) track(operation string, started time.Time, err error) {
	s.monitor.TrackOperation(operation, err, time.Since(started))
}

func (s *TicketStore) Create(ctx context.Context, input models.TicketInput) (ticket *models.Ticket, err error) {
	defer func(started time.Time) { s.track("create", started, err) }(time.Now())

	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrInvalidTicket, err)
	}

	key := input.Uni256
	if key == "" {
		key, err = utils.GenerateUni256()
		if err != nil {
			return nil, fmt.Errorf("generate ticket key: %w", err)
		}
	}

	available := input.TotalQuantity
	if input.AvailableQuantity != nil {
		available = *input.AvailableQuantity
	}
	sold := 0
	if input.SoldQuantity != nil {
		sold = *input.SoldQuantity
	}
	category := input.Category
	if category == "" {
		category = models.DefaultCategory
	}
	now := s.timestamp()

	result, err := s.db.Insert(TicketsTable, dbx.Params{
		"uni256":             key,
		"title":              input.Title,
		"description":        input.Description,
		"venue":              input.Venue,
		"category":           category,
		"price":              input.Price,
		"total_quantity":     input.TotalQuantity,
		"available_quantity": available,
		"sold_quantity":      sold,
		"start_time":         input.StartTime,
		"end_time":           input.EndTime,
		"sale_start_time":    input.SaleStartTime,
		"sale_end_time":      input.SaleEndTime,
		"is_released":        boolOr(input.IsReleased, false),
		"is_expired":         boolOr(input.IsExpired, false),
		"is_enabled":         boolOr(input.IsEnabled, true),
		"is_sold_out":        models.SoldOut(available),
		"organizer":          input.Organizer,
		"contact_info":       input.ContactInfo,
		"terms":              input.Terms,
		"image_url":          input.ImageURL,
		"created_at":         now,
		"updated_at":         now,
	}).WithContext(ctx).Execute()
	if err != nil {
		slog.Error("Failed to insert ticket", "error", err, "title", input.Title)
		return nil, status.Persistence("insert ticket", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, status.Persistence("insert ticket", err)
	}

	return s.findOne(ctx, dbx.HashExp{"id": id})
}

// FindByKey looks a ticket up by its exact public key.
func (s *TicketStore) FindByKey(ctx context.Context, key string) (ticket *models.Ticket, err error) {
	defer func(started time.Time) { s.track("find_by_key", started, err) }(time.Now())

	if key == "" {
		return nil, status.ErrTicketNotFound
	}

	if s.cache != nil {
		cached, result := s.cache.Get(ctx, key)
		s.monitor.TrackCacheLookup(result)
		if cached != nil {
			return cached, nil
		}
	}

	ticket, err = s.findOne(ctx, dbx.HashExp{"uni256": key})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, ticket)
	}
	return ticket, nil
}

func (s *TicketStore) FindByID(ctx context.Context, id int64) (ticket *models.Ticket, err error) {
	defer func(started time.Time) { s.track("find_by_id", started, err) }(time.Now())

	return s.findOne(ctx, dbx.HashExp{"id": id})
}

func (s *TicketStore) findOne(ctx context.Context, where dbx.Expression) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	err := s.db.Select().
		From(TicketsTable).
		Where(where).
		Limit(1).
		WithContext(ctx).
		One(ticket)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrTicketNotFound
	}
	if err != nil {
		return nil, status.Persistence("select ticket", err)
	}
	return ticket, nil
}

// Query returns the tickets matching every predicate set on filter, newest first.
func (s *TicketStore) Query(ctx context.Context, filter models.TicketFilter) (tickets []*models.Ticket, err error) {
	defer func(started time.Time) { s.track("query", started, err) }(time.Now())

	q := applyTicketFilter(s.db.Select().From(TicketsTable), filter).WithContext(ctx)

	rows := []models.Ticket{}
	if err := q.All(&rows); err != nil {
		return nil, status.Persistence("query tickets", err)
	}

	tickets = make([]*models.Ticket, len(rows))
	for i := range rows {
		tickets[i] = &rows[i]
	}
	return tickets, nil
}

// Available lists tickets that can currently be bought.
func (s *TicketStore) Available(ctx context.Context) ([]*models.Ticket, error) {
	return s.Query(ctx, models.TicketFilter{AvailableOnly: true})
}

const purchaseSQL = `UPDATE tickets
SET available_quantity = available_quantity - {:quantity},
    sold_quantity      = sold_quantity + {:quantity},
    is_sold_out        = CASE WHEN available_quantity - {:quantity} <= 0 THEN TRUE ELSE FALSE END,
    version            = version + 1,
    updated_at         = {:updated}
WHERE uni256 = {:key}
  AND is_enabled = TRUE
  AND is_released = TRUE
  AND is_expired = FALSE
  AND available_quantity >= {:quantity}`

// Purchase takes quantity units out of stock. The availability check and the
// decrement are one conditional UPDATE, so concurrent buyers cannot oversell.
func (s *TicketStore) Purchase(ctx context.Context, key string, quantity int) (ticket *models.Ticket, err error) {
	defer func(started time.Time) { s.track("purchase", started, err) }(time.Now())

	if quantity < 1 || (s.cfg.MaxPurchaseQty > 0 && quantity > s.cfg.MaxPurchaseQty) {
		return nil, fmt.Errorf("%w: %d", status.ErrInvalidQuantity, quantity)
	}

	result, err := s.db.NewQuery(purchaseSQL).
		Bind(dbx.Params{
			"quantity": quantity,
			"updated":  s.timestamp(),
			"key":      key,
		}).
		WithContext(ctx).
		Execute()
	if err != nil {
		slog.Error("Failed to purchase ticket", "error", err, "quantity", quantity)
		return nil, status.Persistence("purchase ticket", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, status.Persistence("purchase ticket", err)
	}

	if affected == 0 {
		err = s.purchaseRejection(ctx, key, quantity)
		s.monitor.TrackPurchaseRejection(err)
		return nil, err
	}

	ticket, err = s.findOne(ctx, dbx.HashExp{"uni256": key})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, ticket)
	}

	s.monitor.TrackPurchase(quantity)
	s.publishPurchase(ctx, ticket, quantity)

	slog.Info("Ticket purchased",
		"ticket_id", ticket.ID,
		"quantity", quantity,
		"available_quantity", ticket.AvailableQuantity,
		"sold_out", ticket.IsSoldOut,
	)
	return ticket, nil
}

// purchaseRejection explains why the conditional update matched no row.
func (s *TicketStore) purchaseRejection(ctx context.Context, key string, quantity int) error {
	current, err := s.findOne(ctx, dbx.HashExp{"uni256": key})
	if err != nil {
		return err
	}
	if err := current.CanPurchase(quantity); err != nil {
		return err
	}
	// The row changed between the update and this read (e.g. a restock).
	// Report the state the update saw rather than retrying.
	return status.ErrInsufficientStock
}

// Update writes the non-nil fields of patch. is_sold_out follows a patched
// available_quantity.
func (s *TicketStore) Update(ctx context.Context, key string, patch models.TicketPatch) (ticket *models.Ticket, err error) {
	defer func(started time.Time) { s.track("update", started, err) }(time.Now())

	params := patchParams(patch)
	if len(params) == 0 {
		return nil, status.ErrNoFieldsToUpdate
	}
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrInvalidTicket, err)
	}

	params["version"] = dbx.NewExp("version + 1")
	params["updated_at"] = s.timestamp()

	result, err := s.db.Update(TicketsTable, params, dbx.HashExp{"uni256": key}).
		WithContext(ctx).
		Execute()
	if err != nil {
		slog.Error("Failed to update ticket", "error", err)
		return nil, status.Persistence("update ticket", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, status.Persistence("update ticket", err)
	}
	if affected == 0 {
		return nil, status.ErrTicketNotFound
	}

	ticket, err = s.findOne(ctx, dbx.HashExp{"uni256": key})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, ticket)
	}
	return ticket, nil
}

func patchParams(p models.TicketPatch) dbx.Params {
	params := dbx.Params{}

	if p.Title != nil {
		params["title"] = *p.Title
	}
	if p.Description != nil {
		params["description"] = *p.Description
	}
	if p.Venue != nil {
		params["venue"] = *p.Venue
	}
	if p.Category != nil {
		params["category"] = *p.Category
	}
	if p.Price != nil {
		params["price"] = *p.Price
	}
	if p.TotalQuantity != nil {
		params["total_quantity"] = *p.TotalQuantity
	}
	if p.AvailableQuantity != nil {
		params["available_quantity"] = *p.AvailableQuantity
		params["is_sold_out"] = models.SoldOut(*p.AvailableQuantity)
	}
	if p.StartTime != nil {
		params["start_time"] = *p.StartTime
	}
	if p.EndTime != nil {
		params["end_time"] = *p.EndTime
	}
	if p.SaleStartTime != nil {
		params["sale_start_time"] = *p.SaleStartTime
	}
	if p.SaleEndTime != nil {
		params["sale_end_time"] = *p.SaleEndTime
	}
	if p.IsReleased != nil {
		params["is_released"] = *p.IsReleased
	}
	if p.IsExpired != nil {
		params["is_expired"] = *p.IsExpired
	}
	if p.IsEnabled != nil {
		params["is_enabled"] = *p.IsEnabled
	}
	if p.Organizer != nil {
		params["organizer"] = *p.Organizer
	}
	if p.ContactInfo != nil {
		params["contact_info"] = *p.ContactInfo
	}
	if p.Terms != nil {
		params["terms"] = *p.Terms
	}
	if p.ImageURL != nil {
		params["image_url"] = *p.ImageURL
	}

	return params
}

// Delete removes the ticket and reports whether a row was removed.
func (s *TicketStore) Delete(ctx context.Context, key string) (deleted bool, err error) {
	defer func(started time.Time) { s.track("delete", started, err) }(time.Now())

	result, err := s.db.Delete(TicketsTable, dbx.HashExp{"uni256": key}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return false, status.Persistence("delete ticket", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, status.Persistence("delete ticket", err)
	}

	if s.cache != nil {
		s.cache.Forget(ctx, key)
	}
	return affected > 0, nil
}

const statsSQL = `SELECT
	COUNT(*) AS total_tickets,
	COUNT(CASE WHEN is_released = TRUE THEN 1 END) AS released_tickets,
	COUNT(CASE WHEN is_sold_out = TRUE THEN 1 END) AS sold_out_tickets,
	COUNT(CASE WHEN is_expired = TRUE THEN 1 END) AS expired_tickets,
	COALESCE(SUM(total_quantity), 0) AS total_quantity,
	COALESCE(SUM(sold_quantity), 0) AS total_sold,
	COALESCE(SUM(available_quantity), 0) AS total_available
FROM tickets`

func (s *TicketStore) Stats(ctx context.Context) (stats *models.TicketStats, err error) {
	defer func(started time.Time) { s.track("stats", started, err) }(time.Now())

	stats = &models.TicketStats{}
	if err := s.db.NewQuery(statsSQL).WithContext(ctx).One(stats); err != nil {
		return nil, status.Persistence("ticket stats", err)
	}
	return stats, nil
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
