package services

import (
	"context"
	"testing"

	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-inventory/models"
)

type seedTicket struct {
	title       string
	description string
	venue       string
	category    string
	start       string
	total       int
	released    bool
	enabled     bool
	expired     bool
}

func seedTickets(t *testing.T, store *TicketStore, seeds []seedTicket) []*models.Ticket {
	t.Helper()

	created := make([]*models.Ticket, 0, len(seeds))
	for _, seed := range seeds {
		input := concertInput(t)
		input.Title = seed.title
		input.Description = seed.description
		input.Venue = seed.venue
		input.Category = seed.category
		input.TotalQuantity = seed.total
		input.StartTime = mustDateTime(t, seed.start)
		input.EndTime = types.DateTime{}
		input.IsReleased = boolPtr(seed.released)
		input.IsEnabled = boolPtr(seed.enabled)
		input.IsExpired = boolPtr(seed.expired)

		ticket, err := store.Create(context.Background(), input)
		require.NoError(t, err)
		created = append(created, ticket)
	}
	return created
}

func titles(tickets []*models.Ticket) []string {
	out := make([]string, len(tickets))
	for i, ticket := range tickets {
		out[i] = ticket.Title
	}
	return out
}

func defaultSeeds() []seedTicket {
	return []seedTicket{
		{title: "Jazz Night", description: "Smooth jazz quartet", venue: "Blue Hall", category: "concert", start: "2025-02-01T20:00:00Z", total: 100, released: true, enabled: true},
		{title: "Football Final", description: "Season decider", venue: "City Stadium", category: "sports", start: "2025-03-15T18:00:00Z", total: 0, released: true, enabled: true},
		{title: "Rock Festival", description: "Three stages of ROCK", venue: "Riverside Park", category: "concert", start: "2025-06-20T12:00:00Z", total: 2000, released: false, enabled: true},
		{title: "Opera Gala", description: "Evening of arias", venue: "Grand Theatre", category: "theatre", start: "2025-04-10T19:00:00Z", total: 80, released: true, enabled: false},
		{title: "Comedy Hour", description: "Stand-up showcase", venue: "Jazz Cellar", category: "comedy", start: "2025-01-05T21:00:00Z", total: 60, released: true, enabled: true, expired: true},
	}
}

func TestTicketStore_Query_NoFilter(t *testing.T) {
	store, _ := setupTestTicketStore(t)
	seedTickets(t, store, defaultSeeds())

	tickets, err := store.Query(context.Background(), models.TicketFilter{})
	require.NoError(t, err)

	// Newest first.
	assert.Equal(t, []string{"Comedy Hour", "Opera Gala", "Rock Festival", "Football Final", "Jazz Night"}, titles(tickets))
}

func TestTicketStore_Query_EmptyResult(t *testing.T) {
	store, _ := setupTestTicketStore(t)

	tickets, err := store.Query(context.Background(), models.TicketFilter{Category: "concert"})
	require.NoError(t, err)
	assert.NotNil(t, tickets)
	assert.Empty(t, tickets)
}

func TestTicketStore_Query_Filters(t *testing.T) {
	store, _ := setupTestTicketStore(t)
	seedTickets(t, store, append(defaultSeeds(),
		seedTicket{title: "Über Festival", description: "Drei Tage Musik", venue: "Seebühne", category: "festival", start: "2024-11-01T12:00:00Z", total: 40, released: true, enabled: false},
	))

	tests := []struct {
		name     string
		filter   models.TicketFilter
		expected []string
	}{
		{
			name:     "Category",
			filter:   models.TicketFilter{Category: "concert"},
			expected: []string{"Rock Festival", "Jazz Night"},
		},
		{
			name:     "Category is exact",
			filter:   models.TicketFilter{Category: "conc"},
			expected: []string{},
		},
		{
			name:     "Released",
			filter:   models.TicketFilter{IsReleased: boolPtr(false)},
			expected: []string{"Rock Festival"},
		},
		{
			name:     "Enabled false",
			filter:   models.TicketFilter{IsEnabled: boolPtr(false)},
			expected: []string{"Über Festival", "Opera Gala"},
		},
		{
			name:     "Expired",
			filter:   models.TicketFilter{IsExpired: boolPtr(true)},
			expected: []string{"Comedy Hour"},
		},
		{
			name:     "Sold out",
			filter:   models.TicketFilter{IsSoldOut: boolPtr(true)},
			expected: []string{"Football Final"},
		},
		{
			name:     "Available only",
			filter:   models.TicketFilter{AvailableOnly: true},
			expected: []string{"Comedy Hour", "Jazz Night"},
		},
		{
			name:     "Keyword matches title case-insensitively",
			filter:   models.TicketFilter{Keyword: "JAZZ"},
			expected: []string{"Comedy Hour", "Jazz Night"},
		},
		{
			name:     "Keyword with non-ASCII capital matches title",
			filter:   models.TicketFilter{Keyword: "Über"},
			expected: []string{"Über Festival"},
		},
		{
			name:     "ASCII letters fold around non-ASCII ones",
			filter:   models.TicketFilter{Keyword: "ÜBER FESTIVAL"},
			expected: []string{"Über Festival"},
		},
		{
			name:     "Keyword with non-ASCII letter matches venue",
			filter:   models.TicketFilter{Keyword: "bühne"},
			expected: []string{"Über Festival"},
		},
		{
			name:     "Keyword matches description",
			filter:   models.TicketFilter{Keyword: "rock"},
			expected: []string{"Rock Festival"},
		},
		{
			name:     "Keyword matches venue",
			filter:   models.TicketFilter{Keyword: "stadium"},
			expected: []string{"Football Final"},
		},
		{
			name:     "Start time range is inclusive",
			filter:   models.TicketFilter{StartTimeFrom: mustDateTime(t, "2025-02-01T20:00:00Z"), StartTimeTo: mustDateTime(t, "2025-04-10T19:00:00Z")},
			expected: []string{"Opera Gala", "Football Final", "Jazz Night"},
		},
		{
			name:     "Start time lower bound only",
			filter:   models.TicketFilter{StartTimeFrom: mustDateTime(t, "2025-04-01T00:00:00Z")},
			expected: []string{"Opera Gala", "Rock Festival"},
		},
		{
			name:     "Combined predicates",
			filter:   models.TicketFilter{Category: "concert", IsReleased: boolPtr(true), Keyword: "jazz"},
			expected: []string{"Jazz Night"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tickets, err := store.Query(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, titles(tickets))
		})
	}
}

func TestTicketStore_Query_KeywordWildcardsAreLiteral(t *testing.T) {
	store, _ := setupTestTicketStore(t)
	seedTickets(t, store, []seedTicket{
		{title: "100% Live", category: "concert", start: "2025-02-01T20:00:00Z", total: 10, released: true, enabled: true},
		{title: "1000 Voices", category: "concert", start: "2025-02-01T20:00:00Z", total: 10, released: true, enabled: true},
		{title: "snake_case meetup", category: "talk", start: "2025-02-01T20:00:00Z", total: 10, released: true, enabled: true},
		{title: "snakescase", category: "talk", start: "2025-02-01T20:00:00Z", total: 10, released: true, enabled: true},
	})

	tickets, err := store.Query(context.Background(), models.TicketFilter{Keyword: "100%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"100% Live"}, titles(tickets))

	tickets, err = store.Query(context.Background(), models.TicketFilter{Keyword: "e_c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"snake_case meetup"}, titles(tickets))
}

func TestTicketStore_Query_Pagination(t *testing.T) {
	store, _ := setupTestTicketStore(t)
	seedTickets(t, store, defaultSeeds())
	ctx := context.Background()

	tickets, err := store.Query(ctx, models.TicketFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"Opera Gala", "Rock Festival"}, titles(tickets))

	tickets, err = store.Query(ctx, models.TicketFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Comedy Hour", "Opera Gala"}, titles(tickets))

	tickets, err = store.Query(ctx, models.TicketFilter{Limit: 10, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"Jazz Night"}, titles(tickets))

	// Offset without a limit is ignored.
	tickets, err = store.Query(ctx, models.TicketFilter{Offset: 3})
	require.NoError(t, err)
	assert.Len(t, tickets, 5)
}

func TestTicketStore_Available(t *testing.T) {
	store, _ := setupTestTicketStore(t)
	created := seedTickets(t, store, defaultSeeds())
	ctx := context.Background()

	tickets, err := store.Available(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Comedy Hour", "Jazz Night"}, titles(tickets))

	_, err = store.Purchase(ctx, created[0].Uni256, 100)
	require.NoError(t, err)

	tickets, err = store.Available(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Comedy Hour"}, titles(tickets))
}
