package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-inventory/internal/status"
)

func validInput() TicketInput {
	start, _ := types.ParseDateTime("2024-12-31T19:30:00Z")
	return TicketInput{
		Title:         "New Year Concert",
		Price:         decimal.RequireFromString("388.00"),
		TotalQuantity: 500,
		StartTime:     start,
	}
}

func TestTicketInput_Validate(t *testing.T) {
	negative := -1

	tests := []struct {
		name    string
		mutate  func(in *TicketInput)
		wantErr string
	}{
		{"Valid input", func(in *TicketInput) {}, ""},
		{"Missing title", func(in *TicketInput) { in.Title = "" }, "title"},
		{"Negative price", func(in *TicketInput) { in.Price = decimal.NewFromInt(-5) }, "price"},
		{"Negative total", func(in *TicketInput) { in.TotalQuantity = -10 }, "totalQuantity"},
		{"Negative available", func(in *TicketInput) { in.AvailableQuantity = &negative }, "availableQuantity"},
		{"Missing start time", func(in *TicketInput) { in.StartTime = types.DateTime{} }, "startTime"},
		{"Supplied key", func(in *TicketInput) { in.Uni256 = strings.Repeat("aZ9", 85) + "x" }, ""},
		{"Short key", func(in *TicketInput) { in.Uni256 = "short key!" }, "uni256"},
		{"Key too long", func(in *TicketInput) { in.Uni256 = strings.Repeat("a", 257) }, "uni256"},
		{"Key with symbols", func(in *TicketInput) { in.Uni256 = strings.Repeat("a", 255) + "-" }, "uni256"},
		{"Key with multibyte letters", func(in *TicketInput) { in.Uni256 = strings.Repeat("a", 254) + "ü" }, "uni256"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			err := in.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTicketPatch_Validate(t *testing.T) {
	empty := ""
	negative := -3
	zero := 0

	assert.NoError(t, (&TicketPatch{}).Validate())
	assert.NoError(t, (&TicketPatch{AvailableQuantity: &zero}).Validate())
	assert.Error(t, (&TicketPatch{Title: &empty}).Validate())
	assert.Error(t, (&TicketPatch{AvailableQuantity: &negative}).Validate())

	start, err := types.ParseDateTime("2025-03-01T18:00:00Z")
	require.NoError(t, err)
	assert.NoError(t, (&TicketPatch{StartTime: &start}).Validate())
}

func TestTicketPatch_Validate_BlankStartTime(t *testing.T) {
	var patch TicketPatch
	require.NoError(t, json.Unmarshal([]byte(`{"startTime": ""}`), &patch))
	require.NotNil(t, patch.StartTime)

	err := patch.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startTime")

	// Clearing optional times stays allowed.
	patch = TicketPatch{}
	require.NoError(t, json.Unmarshal([]byte(`{"endTime": ""}`), &patch))
	assert.NoError(t, patch.Validate())
}

func TestTicket_CanPurchase_Order(t *testing.T) {
	tests := []struct {
		name     string
		ticket   Ticket
		quantity int
		expected error
	}{
		{
			name:     "Disabled wins over everything",
			ticket:   Ticket{IsEnabled: false, IsReleased: false, IsExpired: true},
			quantity: 1,
			expected: status.ErrTicketNotEnabled,
		},
		{
			name:     "Unreleased before expired",
			ticket:   Ticket{IsEnabled: true, IsReleased: false, IsExpired: true},
			quantity: 1,
			expected: status.ErrTicketNotReleased,
		},
		{
			name:     "Expired before stock",
			ticket:   Ticket{IsEnabled: true, IsReleased: true, IsExpired: true},
			quantity: 1,
			expected: status.ErrTicketExpired,
		},
		{
			name:     "Insufficient stock",
			ticket:   Ticket{IsEnabled: true, IsReleased: true, AvailableQuantity: 2},
			quantity: 3,
			expected: status.ErrInsufficientStock,
		},
		{
			name:     "Exact stock is enough",
			ticket:   Ticket{IsEnabled: true, IsReleased: true, AvailableQuantity: 3},
			quantity: 3,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.ticket.CanPurchase(tt.quantity))
		})
	}
}

func TestSoldOut(t *testing.T) {
	assert.True(t, SoldOut(0))
	assert.True(t, SoldOut(-1))
	assert.False(t, SoldOut(1))
}

func TestTicket_JSONFieldNames(t *testing.T) {
	ticket := Ticket{
		ID:                7,
		Uni256:            "abc",
		Title:             "Jazz Night",
		Category:          DefaultCategory,
		Price:             decimal.RequireFromString("12.50"),
		TotalQuantity:     10,
		AvailableQuantity: 0,
		SoldQuantity:      10,
		IsSoldOut:         true,
		ImageURL:          "https://example.com/a.png",
	}

	data, err := json.Marshal(ticket)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "abc", raw["uni256"])
	assert.Equal(t, float64(10), raw["soldQuantity"])
	assert.Equal(t, true, raw["isSoldOut"])
	assert.Equal(t, "https://example.com/a.png", raw["imageUrl"])
	assert.Equal(t, "12.5", raw["price"])
	assert.NotContains(t, raw, "description")
}
