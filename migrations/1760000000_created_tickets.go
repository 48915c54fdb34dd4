package migrations

import (
	"context"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"

	"ticket-inventory/internal/services"
)

func init() {
	m.Register(func(app core.App) error {
		return services.EnsureTicketSchema(context.Background(), app.DB())
	}, func(app core.App) error {
		return services.DropTicketSchema(context.Background(), app.DB())
	})
}
