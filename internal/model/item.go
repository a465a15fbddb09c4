package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// Kind discriminates the two bookable collections.  It is not stored in
// either table; repositories set it from the table a row was read from.
type Kind string

const (
	KindEvent  Kind = "event"
	KindMeetup Kind = "meetup"
)

// Table returns the backing table for the kind.
func (k Kind) Table() string {
	if k == KindMeetup {
		return "meetups"
	}
	return "events"
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool { return k == KindEvent || k == KindMeetup }

// ParseKind accepts both the singular discriminant and the table name.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "event", "events":
		return KindEvent, true
	case "meetup", "meetups":
		return KindMeetup, true
	}
	return "", false
}

const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

// Prices go over the wire as JSON numbers.
func init() { decimal.MarshalJSONWithoutQuotes = true }

// Item is the kind-tagged representation of a row from either the events or
// the meetups table.  Kind is always set after a read.  OwnerID is the
// organizer's user_id.  A nil MaxParticipants means the default capacity,
// and TicketPrice is only ever set on events.  MemberCount is a display
// counter and is not kept in step with bookings.
type Item struct {
	ID              string           `json:"id"`
	Kind            Kind             `json:"type"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Category        string           `json:"category"`
	StartDate       time.Time        `json:"start_date"`
	EndDate         *time.Time       `json:"end_date,omitempty"`
	Location        string           `json:"location,omitempty"`
	MeetupLink      string           `json:"meetup_link,omitempty"`
	Image           string           `json:"image,omitempty"`
	OwnerID         string           `json:"user_id"`
	Featured        bool             `json:"featured"`
	Status          string           `json:"status"`
	MaxParticipants *int             `json:"max_participants,omitempty"`
	MemberCount     int              `json:"member_count"`
	MemberAvatars   []string         `json:"member_avatars"`
	TicketPrice     *decimal.Decimal `json:"ticket_price,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Price returns the ticket price used for range filtering.  Meetups and
// events without a price count as free.
func (it Item) Price() decimal.Decimal {
	if it.Kind != KindEvent || it.TicketPrice == nil {
		return decimal.Zero
	}
	return *it.TicketPrice
}

// IsCancelled reports whether the item has been soft-cancelled.
func (it Item) IsCancelled() bool { return it.Status == StatusCancelled }

// Validate checks a create payload.  ID and timestamps are assigned by the
// repository and are not required here.
func (it Item) Validate() error {
	return validation.ValidateStruct(&it,
		validation.Field(&it.Kind, validation.Required, validation.In(KindEvent, KindMeetup)),
		validation.Field(&it.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&it.Description, validation.Length(0, 5000)),
		validation.Field(&it.Category, validation.Required, validation.Length(1, 50)),
		validation.Field(&it.StartDate, validation.Required),
		validation.Field(&it.EndDate, validation.By(endAfter(it.StartDate))),
		validation.Field(&it.OwnerID, validation.Required),
		validation.Field(&it.Status, validation.In(StatusActive, StatusCancelled)),
		validation.Field(&it.MaxParticipants, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&it.MemberCount, validation.Min(0)),
		validation.Field(&it.TicketPrice, validation.By(nonNegativePrice)),
		validation.Field(&it.MeetupLink, validation.When(it.Kind == KindMeetup && it.Location == "", validation.Required.Error("location or meetup_link is required"))),
	)
}

// ItemPatch carries a partial update.  Nil fields are left untouched.
type ItemPatch struct {
	Title           *string          `json:"title"`
	Description     *string          `json:"description"`
	Category        *string          `json:"category"`
	StartDate       *time.Time       `json:"start_date"`
	EndDate         *time.Time       `json:"end_date"`
	Location        *string          `json:"location"`
	MeetupLink      *string          `json:"meetup_link"`
	Image           *string          `json:"image"`
	Featured        *bool            `json:"featured"`
	Status          *string          `json:"status"`
	MaxParticipants *int             `json:"max_participants"`
	MemberCount     *int             `json:"member_count"`
	MemberAvatars   []string         `json:"member_avatars"`
	TicketPrice     *decimal.Decimal `json:"ticket_price"`
}

func (p ItemPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&p.Category, validation.NilOrNotEmpty, validation.Length(1, 50)),
		validation.Field(&p.Status, validation.NilOrNotEmpty, validation.In(StatusActive, StatusCancelled)),
		validation.Field(&p.MaxParticipants, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&p.MemberCount, validation.Min(0)),
		validation.Field(&p.TicketPrice, validation.By(nonNegativePrice)),
	)
}

// Empty reports whether the patch would change nothing.
func (p ItemPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil && p.StartDate == nil &&
		p.EndDate == nil && p.Location == nil && p.MeetupLink == nil && p.Image == nil &&
		p.Featured == nil && p.Status == nil && p.MaxParticipants == nil && p.MemberCount == nil &&
		p.MemberAvatars == nil && p.TicketPrice == nil
}

func endAfter(start time.Time) validation.RuleFunc {
	return func(value interface{}) error {
		end, _ := value.(*time.Time)
		if end == nil || start.IsZero() {
			return nil
		}
		if end.Before(start) {
			return validation.NewError("validation_end_before_start", "must not be before start_date")
		}
		return nil
	}
}

func nonNegativePrice(value interface{}) error {
	p, _ := value.(*decimal.Decimal)
	if p != nil && p.IsNegative() {
		return validation.NewError("validation_negative_price", "must not be negative")
	}
	return nil
}
