package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	pubnub "github.com/pubnub/go"

	"ticket-inventory/models"
)

const (
	EventTicketPurchased = "ticket_purchased"
	EventTicketSoldOut   = "ticket_sold_out"
)

type TicketPublisher interface {
	Publish(ctx context.Context, channel string, message any) error
}

// PubNubPublisher sends ticket events over PubNub.
type PubNubPublisher struct {
	pubnub *pubnub.PubNub
}

func NewPubNubPublisher(pn *pubnub.PubNub) *PubNubPublisher {
	return &PubNubPublisher{pubnub: pn}
}

func (p *PubNubPublisher) Publish(ctx context.Context, channel string, message any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, publishStatus, err := p.pubnub.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		return err
	}
	if publishStatus.Error != nil {
		return fmt.Errorf("pubnub publish failed with status %d: %w", publishStatus.StatusCode, publishStatus.Error)
	}
	return nil
}

func purchaseEvent(ticket *models.Ticket, quantity int, at time.Time) map[string]any {
	return map[string]any{
		"id":                 uuid.NewString(),
		"type":               EventTicketPurchased,
		"ticket_id":          ticket.ID,
		"uni256":             ticket.Uni256,
		"quantity":           quantity,
		"available_quantity": ticket.AvailableQuantity,
		"sold_quantity":      ticket.SoldQuantity,
		"timestamp":          at.Unix(),
	}
}

func soldOutEvent(ticket *models.Ticket, at time.Time) map[string]any {
	return map[string]any{
		"id":            uuid.NewString(),
		"type":          EventTicketSoldOut,
		"ticket_id":     ticket.ID,
		"uni256":        ticket.Uni256,
		"title":         ticket.Title,
		"sold_quantity": ticket.SoldQuantity,
		"timestamp":     at.Unix(),
	}
}

// publishPurchase is best effort: a purchase has already committed when it runs.
func (s *TicketStore) publishPurchase(ctx context.Context, ticket *models.Ticket, quantity int) {
	if s.publisher == nil {
		return
	}

	now := s.now()
	channel := s.cfg.EventsChannel

	if err := s.publisher.Publish(ctx, channel, purchaseEvent(ticket, quantity, now)); err != nil {
		slog.Warn("Failed to publish purchase event", "error", err, "ticket_id", ticket.ID)
	}

	if ticket.IsSoldOut {
		if err := s.publisher.Publish(ctx, channel, soldOutEvent(ticket, now)); err != nil {
			slog.Warn("Failed to publish sold out event", "error", err, "ticket_id", ticket.ID)
		}
	}
}
