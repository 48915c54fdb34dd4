package services

import (
	"strings"

	"github.com/pocketbase/dbx"

	"ticket-inventory/models"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// applyTicketFilter ANDs every predicate set on f onto q and applies ordering
// and pagination. Offset is ignored unless a limit is set.
func applyTicketFilter(q *dbx.SelectQuery, f models.TicketFilter) *dbx.SelectQuery {
	for _, exp := range ticketFilterExps(f) {
		q = q.AndWhere(exp)
	}

	q = q.OrderBy("created_at DESC", "id DESC")

	if f.Limit > 0 {
		q = q.Limit(int64(f.Limit))
		if f.Offset > 0 {
			q = q.Offset(int64(f.Offset))
		}
	}
	return q
}

func ticketFilterExps(f models.TicketFilter) []dbx.Expression {
	exps := []dbx.Expression{}

	if f.Category != "" {
		exps = append(exps, dbx.HashExp{"category": f.Category})
	}
	if f.IsReleased != nil {
		exps = append(exps, dbx.HashExp{"is_released": *f.IsReleased})
	}
	if f.IsEnabled != nil {
		exps = append(exps, dbx.HashExp{"is_enabled": *f.IsEnabled})
	}
	if f.IsExpired != nil {
		exps = append(exps, dbx.HashExp{"is_expired": *f.IsExpired})
	}
	if f.IsSoldOut != nil {
		exps = append(exps, dbx.HashExp{"is_sold_out": *f.IsSoldOut})
	}
	if f.AvailableOnly {
		exps = append(exps, dbx.NewExp("available_quantity > 0 AND is_enabled = TRUE AND is_released = TRUE"))
	}
	if !f.StartTimeFrom.IsZero() {
		exps = append(exps, dbx.NewExp("start_time >= {:start_from}", dbx.Params{"start_from": f.StartTimeFrom}))
	}
	if !f.StartTimeTo.IsZero() {
		exps = append(exps, dbx.NewExp("start_time <= {:start_to}", dbx.Params{"start_to": f.StartTimeTo}))
	}
	if keyword := strings.TrimSpace(f.Keyword); keyword != "" {
		// LIKE folds ASCII case only and matches other bytes exactly.
		pattern := "%" + likeEscaper.Replace(keyword) + "%"
		exps = append(exps, dbx.NewExp(
			`(title LIKE {:keyword} ESCAPE '\' OR description LIKE {:keyword} ESCAPE '\' OR venue LIKE {:keyword} ESCAPE '\')`,
			dbx.Params{"keyword": pattern},
		))
	}

	return exps
}
