package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// ActiveBookingStatuses are the statuses that hold seats.
var ActiveBookingStatuses = []string{BookingPending, BookingConfirmed}

// Seat is one entry of a booking's selected_seats column.  Only Seat is
// used for capacity accounting; entries without it are ignored there.
type Seat struct {
	Seat  string           `json:"seat"`
	Row   string           `json:"row,omitempty"`
	Price *decimal.Decimal `json:"price,omitempty"`
}

// Booking records a user's request to attend an item.  Rows are never
// deleted: cancellation is a status change that also clears SelectedSeats.
type Booking struct {
	ID            string     `json:"id"`
	EventID       string     `json:"event_id"`
	UserID        string     `json:"user_id"`
	Status        string     `json:"status"`
	SelectedSeats []Seat     `json:"selected_seats"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsActive reports whether the booking still holds its seats.
func (b Booking) IsActive() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

func (b Booking) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.UserID, validation.Required),
		validation.Field(&b.Status, validation.In(BookingPending, BookingConfirmed)),
		validation.Field(&b.SelectedSeats, validation.Length(0, 500)),
	)
}

// ValidBookingStatus reports whether s is a known booking status.
func ValidBookingStatus(s string) bool {
	return s == BookingPending || s == BookingConfirmed || s == BookingCancelled
}
