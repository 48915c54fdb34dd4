package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/pocketbase/pocketbase"
	"github.com/spf13/cobra"

	"ticket-inventory/config"
	"ticket-inventory/internal/services"
)

// newStatsCommand prints the inventory totals without starting the server.
func newStatsCommand(app *pocketbase.PocketBase, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "ticket-stats",
		Short: "Print aggregate ticket inventory statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := services.EnsureTicketSchema(ctx, app.DB()); err != nil {
				return fmt.Errorf("prepare tickets table: %w", err)
			}

			store := services.NewTicketStore(app.DB(), cfg.Ticket)
			stats, err := store.Stats(ctx)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
