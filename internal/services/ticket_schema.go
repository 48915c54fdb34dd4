package services

import (
	"context"

	"github.com/pocketbase/dbx"
)

const TicketsTable = "tickets"

var ticketSchema = []string{
	`CREATE TABLE IF NOT EXISTS tickets (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		uni256             TEXT    NOT NULL,
		title              TEXT    NOT NULL,
		description        TEXT    NOT NULL DEFAULT '',
		venue              TEXT    NOT NULL DEFAULT '',
		category           TEXT    NOT NULL DEFAULT 'general',
		price              NUMERIC NOT NULL DEFAULT 0,
		total_quantity     INTEGER NOT NULL DEFAULT 0 CHECK (total_quantity >= 0),
		available_quantity INTEGER NOT NULL DEFAULT 0 CHECK (available_quantity >= 0),
		sold_quantity      INTEGER NOT NULL DEFAULT 0 CHECK (sold_quantity >= 0),
		start_time         TEXT    NOT NULL,
		end_time           TEXT    NOT NULL DEFAULT '',
		sale_start_time    TEXT    NOT NULL DEFAULT '',
		sale_end_time      TEXT    NOT NULL DEFAULT '',
		is_released        BOOLEAN NOT NULL DEFAULT FALSE,
		is_expired         BOOLEAN NOT NULL DEFAULT FALSE,
		is_enabled         BOOLEAN NOT NULL DEFAULT TRUE,
		is_sold_out        BOOLEAN NOT NULL DEFAULT FALSE,
		organizer          TEXT    NOT NULL DEFAULT '',
		contact_info       TEXT    NOT NULL DEFAULT '',
		terms              TEXT    NOT NULL DEFAULT '',
		image_url          TEXT    NOT NULL DEFAULT '',
		version            INTEGER NOT NULL DEFAULT 1,
		created_at         TEXT    NOT NULL DEFAULT '',
		updated_at         TEXT    NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_uni256 ON tickets (uni256)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_category ON tickets (category)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_title ON tickets (title)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_created_at ON tickets (created_at)`,
}

// EnsureTicketSchema creates the tickets table and its indexes when missing.
func EnsureTicketSchema(ctx context.Context, db dbx.Builder) error {
	for _, stmt := range ticketSchema {
		if _, err := db.NewQuery(stmt).WithContext(ctx).Execute(); err != nil {
			return err
		}
	}
	return nil
}

func DropTicketSchema(ctx context.Context, db dbx.Builder) error {
	_, err := db.NewQuery("DROP TABLE IF EXISTS tickets").WithContext(ctx).Execute()
	return err
}
