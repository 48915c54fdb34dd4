package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/spf13/cast"

	"ticket-inventory/internal/services"
	"ticket-inventory/internal/status"
	"ticket-inventory/models"
)

type TicketHandler struct {
	store *services.TicketStore
}

func NewTicketHandler(store *services.TicketStore) *TicketHandler {
	return &TicketHandler{store: store}
}

// Register mounts the ticket routes under /api/v1/tickets. purchaseGuards run
// before the purchase action only.
func (h *TicketHandler) Register(r *router.Router[*core.RequestEvent], purchaseGuards ...func(*core.RequestEvent) error) {
	g := r.Group("/api/v1/tickets")

	g.POST("", h.CreateTicket)
	g.GET("", h.QueryTickets)
	g.GET("/available", h.AvailableTickets)
	g.GET("/stats", h.TicketStats)
	g.GET("/id/{id}", h.GetTicketByID)
	g.GET("/{key}", h.GetTicket)
	g.PATCH("/{key}", h.UpdateTicket)
	g.DELETE("/{key}", h.DeleteTicket)
	g.POST("/{key}/purchase", h.PurchaseTicket).BindFunc(purchaseGuards...)
}

func (h *TicketHandler) CreateTicket(e *core.RequestEvent) error {
	var input models.TicketInput
	if err := e.BindBody(&input); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	ticket, err := h.store.Create(e.Request.Context(), input)
	if err != nil {
		return ticketError(err)
	}
	return e.JSON(http.StatusCreated, ticket)
}

// QueryTickets - List tickets matching the query string filters
func (h *TicketHandler) QueryTickets(e *core.RequestEvent) error {
	filter, err := parseTicketFilter(e.Request.URL.Query())
	if err != nil {
		return apis.NewBadRequestError(err.Error(), nil)
	}

	tickets, err := h.store.Query(e.Request.Context(), filter)
	if err != nil {
		return ticketError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"items": tickets,
		"count": len(tickets),
	})
}

func (h *TicketHandler) AvailableTickets(e *core.RequestEvent) error {
	tickets, err := h.store.Available(e.Request.Context())
	if err != nil {
		return ticketError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"items": tickets,
		"count": len(tickets),
	})
}

func (h *TicketHandler) TicketStats(e *core.RequestEvent) error {
	stats, err := h.store.Stats(e.Request.Context())
	if err != nil {
		return ticketError(err)
	}
	return e.JSON(http.StatusOK, stats)
}

func (h *TicketHandler) GetTicketByID(e *core.RequestEvent) error {
	id, err := cast.ToInt64E(e.Request.PathValue("id"))
	if err != nil {
		return apis.NewBadRequestError("Invalid ticket id", nil)
	}

	ticket, err := h.store.FindByID(e.Request.Context(), id)
	if err != nil {
		return ticketError(err)
	}
	return e.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) GetTicket(e *core.RequestEvent) error {
	ticket, err := h.store.FindByKey(e.Request.Context(), e.Request.PathValue("key"))
	if err != nil {
		return ticketError(err)
	}
	return e.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) UpdateTicket(e *core.RequestEvent) error {
	var patch models.TicketPatch
	if err := e.BindBody(&patch); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	ticket, err := h.store.Update(e.Request.Context(), e.Request.PathValue("key"), patch)
	if err != nil {
		return ticketError(err)
	}
	return e.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) DeleteTicket(e *core.RequestEvent) error {
	deleted, err := h.store.Delete(e.Request.Context(), e.Request.PathValue("key"))
	if err != nil {
		return ticketError(err)
	}
	if !deleted {
		return ticketError(status.ErrTicketNotFound)
	}
	return e.NoContent(http.StatusNoContent)
}

// PurchaseTicket - Buy quantity units of a ticket; quantity defaults to 1
func (h *TicketHandler) PurchaseTicket(e *core.RequestEvent) error {
	var req struct {
		Quantity *int `json:"quantity"`
	}
	if e.Request.ContentLength != 0 {
		if err := e.BindBody(&req); err != nil {
			return apis.NewBadRequestError("Invalid request", err)
		}
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	ticket, err := h.store.Purchase(e.Request.Context(), e.Request.PathValue("key"), quantity)
	if err != nil {
		return ticketError(err)
	}
	return e.JSON(http.StatusOK, ticket)
}

// ticketError maps store errors onto API errors.
func ticketError(err error) error {
	switch {
	case errors.Is(err, status.ErrTicketNotFound):
		return apis.NewNotFoundError("Ticket not found", nil)
	case errors.Is(err, status.ErrTicketNotEnabled):
		return apis.NewApiError(http.StatusConflict, "Ticket sales are disabled", nil)
	case errors.Is(err, status.ErrTicketNotReleased):
		return apis.NewApiError(http.StatusConflict, "Ticket is not released yet", nil)
	case errors.Is(err, status.ErrTicketExpired):
		return apis.NewApiError(http.StatusConflict, "Ticket has expired", nil)
	case errors.Is(err, status.ErrInsufficientStock):
		return apis.NewApiError(http.StatusConflict, "Not enough tickets left", nil)
	case errors.Is(err, status.ErrNoFieldsToUpdate),
		errors.Is(err, status.ErrInvalidQuantity),
		errors.Is(err, status.ErrInvalidTicket):
		return apis.NewBadRequestError(err.Error(), nil)
	}

	slog.Error("Ticket request failed", "error", err)
	return apis.NewInternalServerError("Failed to process ticket request", nil)
}

func parseTicketFilter(query url.Values) (models.TicketFilter, error) {
	filter := models.TicketFilter{
		Category: query.Get("category"),
		Keyword:  query.Get("keyword"),
	}

	flags := map[string]**bool{
		"is_released": &filter.IsReleased,
		"is_enabled":  &filter.IsEnabled,
		"is_expired":  &filter.IsExpired,
		"is_sold_out": &filter.IsSoldOut,
	}
	for name, dst := range flags {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		value, err := cast.ToBoolE(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid %s: %q", name, raw)
		}
		*dst = &value
	}

	if raw := query.Get("available_only"); raw != "" {
		value, err := cast.ToBoolE(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid available_only: %q", raw)
		}
		filter.AvailableOnly = value
	}

	for name, dst := range map[string]*types.DateTime{
		"start_time_from": &filter.StartTimeFrom,
		"start_time_to":   &filter.StartTimeTo,
	} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		value, err := types.ParseDateTime(raw)
		if err != nil || value.IsZero() {
			return filter, fmt.Errorf("invalid %s: %q", name, raw)
		}
		*dst = value
	}

	for name, dst := range map[string]*int{
		"limit":  &filter.Limit,
		"offset": &filter.Offset,
	} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		value, err := cast.ToIntE(raw)
		if err != nil || value < 0 {
			return filter, fmt.Errorf("invalid %s: %q", name, raw)
		}
		*dst = value
	}

	return filter, nil
}
