package models

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"

	"ticket-inventory/internal/status"
	"ticket-inventory/utils"
)

const DefaultCategory = "general"

type Ticket struct {
	ID                int64           `db:"id" json:"id"`
	Uni256            string          `db:"uni256" json:"uni256"`
	Title             string          `db:"title" json:"title"`
	Description       string          `db:"description" json:"description,omitempty"`
	Venue             string          `db:"venue" json:"venue,omitempty"`
	Category          string          `db:"category" json:"category"`
	Price             decimal.Decimal `db:"price" json:"price"`
	TotalQuantity     int             `db:"total_quantity" json:"totalQuantity"`
	AvailableQuantity int             `db:"available_quantity" json:"availableQuantity"`
	SoldQuantity      int             `db:"sold_quantity" json:"soldQuantity"`
	StartTime         types.DateTime  `db:"start_time" json:"startTime"`
	EndTime           types.DateTime  `db:"end_time" json:"endTime"`
	SaleStartTime     types.DateTime  `db:"sale_start_time" json:"saleStartTime"`
	SaleEndTime       types.DateTime  `db:"sale_end_time" json:"saleEndTime"`
	IsReleased        bool            `db:"is_released" json:"isReleased"`
	IsExpired         bool            `db:"is_expired" json:"isExpired"`
	IsEnabled         bool            `db:"is_enabled" json:"isEnabled"`
	IsSoldOut         bool            `db:"is_sold_out" json:"isSoldOut"`
	Organizer         string          `db:"organizer" json:"organizer,omitempty"`
	ContactInfo       string          `db:"contact_info" json:"contactInfo,omitempty"`
	Terms             string          `db:"terms" json:"terms,omitempty"`
	ImageURL          string          `db:"image_url" json:"imageUrl,omitempty"`
	Version           int64           `db:"version" json:"version"`
	CreatedAt         types.DateTime  `db:"created_at" json:"createdAt"`
	UpdatedAt         types.DateTime  `db:"updated_at" json:"updatedAt"`
}

// SoldOut is the derived sold-out flag for a given availability.
func SoldOut(availableQuantity int) bool {
	return availableQuantity <= 0
}

// CanPurchase checks the purchase preconditions in order and returns the
// first one that fails.
func (t *Ticket) CanPurchase(quantity int) error {
	switch {
	case !t.IsEnabled:
		return status.ErrTicketNotEnabled
	case !t.IsReleased:
		return status.ErrTicketNotReleased
	case t.IsExpired:
		return status.ErrTicketExpired
	case t.AvailableQuantity < quantity:
		return status.ErrInsufficientStock
	}
	return nil
}

// TicketInput carries the fields accepted on creation. Nil pointers fall
// back to the store defaults.
type TicketInput struct {
	Uni256            string          `json:"uni256"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Venue             string          `json:"venue"`
	Category          string          `json:"category"`
	Price             decimal.Decimal `json:"price"`
	TotalQuantity     int             `json:"totalQuantity"`
	AvailableQuantity *int            `json:"availableQuantity"`
	SoldQuantity      *int            `json:"soldQuantity"`
	StartTime         types.DateTime  `json:"startTime"`
	EndTime           types.DateTime  `json:"endTime"`
	SaleStartTime     types.DateTime  `json:"saleStartTime"`
	SaleEndTime       types.DateTime  `json:"saleEndTime"`
	IsReleased        *bool           `json:"isReleased"`
	IsExpired         *bool           `json:"isExpired"`
	IsEnabled         *bool           `json:"isEnabled"`
	Organizer         string          `json:"organizer"`
	ContactInfo       string          `json:"contactInfo"`
	Terms             string          `json:"terms"`
	ImageURL          string          `json:"imageUrl"`
}

func (in *TicketInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Uni256, validation.When(in.Uni256 != "",
			validation.Length(utils.Uni256Length, utils.Uni256Length),
			validation.By(alphanumericKey),
		)),
		validation.Field(&in.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Price, validation.By(nonNegativeDecimal)),
		validation.Field(&in.TotalQuantity, validation.Min(0)),
		validation.Field(&in.AvailableQuantity, validation.Min(0)),
		validation.Field(&in.SoldQuantity, validation.Min(0)),
		validation.Field(&in.StartTime, validation.By(requiredDateTime)),
	)
}

// TicketPatch is the update allow-list. Only non-nil fields are written.
type TicketPatch struct {
	Title             *string          `json:"title"`
	Description       *string          `json:"description"`
	Venue             *string          `json:"venue"`
	Category          *string          `json:"category"`
	Price             *decimal.Decimal `json:"price"`
	TotalQuantity     *int             `json:"totalQuantity"`
	AvailableQuantity *int             `json:"availableQuantity"`
	StartTime         *types.DateTime  `json:"startTime"`
	EndTime           *types.DateTime  `json:"endTime"`
	SaleStartTime     *types.DateTime  `json:"saleStartTime"`
	SaleEndTime       *types.DateTime  `json:"saleEndTime"`
	IsReleased        *bool            `json:"isReleased"`
	IsExpired         *bool            `json:"isExpired"`
	IsEnabled         *bool            `json:"isEnabled"`
	Organizer         *string          `json:"organizer"`
	ContactInfo       *string          `json:"contactInfo"`
	Terms             *string          `json:"terms"`
	ImageURL          *string          `json:"imageUrl"`
}

func (p *TicketPatch) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Title, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&p.Price, validation.By(nonNegativeDecimal)),
		validation.Field(&p.TotalQuantity, validation.Min(0)),
		validation.Field(&p.AvailableQuantity, validation.Min(0)),
		validation.Field(&p.StartTime, validation.By(requiredDateTime)),
	)
}

// TicketFilter holds the optional query predicates; all set predicates are ANDed.
// Zero values mean "not set" except for the boolean pointers.
type TicketFilter struct {
	Category      string         `json:"category"`
	IsReleased    *bool          `json:"isReleased"`
	IsEnabled     *bool          `json:"isEnabled"`
	IsExpired     *bool          `json:"isExpired"`
	IsSoldOut     *bool          `json:"isSoldOut"`
	AvailableOnly bool           `json:"availableOnly"`
	StartTimeFrom types.DateTime `json:"startTimeFrom"`
	StartTimeTo   types.DateTime `json:"startTimeTo"`
	Keyword       string         `json:"keyword"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
}

type TicketStats struct {
	TotalTickets    int `db:"total_tickets" json:"totalTickets"`
	ReleasedTickets int `db:"released_tickets" json:"releasedTickets"`
	SoldOutTickets  int `db:"sold_out_tickets" json:"soldOutTickets"`
	ExpiredTickets  int `db:"expired_tickets" json:"expiredTickets"`
	TotalQuantity   int `db:"total_quantity" json:"totalQuantity"`
	TotalSold       int `db:"total_sold" json:"totalSold"`
	TotalAvailable  int `db:"total_available" json:"totalAvailable"`
}

func nonNegativeDecimal(value any) error {
	var d decimal.Decimal
	switch v := value.(type) {
	case decimal.Decimal:
		d = v
	case *decimal.Decimal:
		if v == nil {
			return nil
		}
		d = *v
	default:
		return nil
	}
	if d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

// requiredDateTime rejects a zero time. A nil pointer means the field is
// not being set and passes.
func requiredDateTime(value any) error {
	var dt types.DateTime
	switch v := value.(type) {
	case types.DateTime:
		dt = v
	case *types.DateTime:
		if v == nil {
			return nil
		}
		dt = *v
	default:
		return nil
	}
	if dt.IsZero() {
		return errors.New("cannot be blank")
	}
	return nil
}

func alphanumericKey(value any) error {
	if s, _ := value.(string); !utils.IsAlphanumeric(s) {
		return errors.New("must contain only letters and digits")
	}
	return nil
}
