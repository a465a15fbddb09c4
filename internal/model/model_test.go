package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldErrors(t *testing.T, err error) validation.Errors {
	t.Helper()
	var errs validation.Errors
	require.True(t, errors.As(err, &errs), "expected validation.Errors, got %v", err)
	return errs
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"event": KindEvent, "events": KindEvent, "meetup": KindMeetup, "meetups": KindMeetup} {
		got, ok := ParseKind(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseKind("concert")
	assert.False(t, ok)
	assert.Equal(t, "meetups", KindMeetup.Table())
	assert.Equal(t, "events", KindEvent.Table())
}

func TestItemPrice(t *testing.T) {
	p := decimal.NewFromInt(30)
	assert.True(t, Item{Kind: KindEvent, TicketPrice: &p}.Price().Equal(p))
	assert.True(t, Item{Kind: KindMeetup, TicketPrice: &p}.Price().IsZero())
	assert.True(t, Item{Kind: KindEvent}.Price().IsZero())
}

func TestItemTicketPriceIsJSONNumber(t *testing.T) {
	p := decimal.RequireFromString("25.50")
	bs, err := json.Marshal(Item{Kind: KindEvent, TicketPrice: &p})
	require.NoError(t, err)
	assert.Contains(t, string(bs), `"ticket_price":25.5`)

	var back Item
	require.NoError(t, json.Unmarshal(bs, &back))
	require.NotNil(t, back.TicketPrice)
	assert.True(t, back.TicketPrice.Equal(p))
}

func TestItemValidate(t *testing.T) {
	start := time.Date(2026, 12, 1, 19, 0, 0, 0, time.UTC)
	before := start.Add(-time.Hour)
	neg := decimal.NewFromInt(-1)

	valid := Item{Kind: KindEvent, Title: "Jazz", Category: "Music", StartDate: start, OwnerID: "u1"}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.EndDate = &before
	bad.TicketPrice = &neg
	errs := fieldErrors(t, bad.Validate())
	assert.Contains(t, errs, "end_date")
	assert.Contains(t, errs, "ticket_price")

	meetup := Item{Kind: KindMeetup, Title: "Go", Category: "Tech", StartDate: start, OwnerID: "u1"}
	errs = fieldErrors(t, meetup.Validate())
	assert.Contains(t, errs, "meetup_link")
	meetup.Location = "Lisbon"
	assert.NoError(t, meetup.Validate())
}

func TestItemPatch(t *testing.T) {
	assert.True(t, ItemPatch{}.Empty())
	empty := ""
	zero := 0
	errs := fieldErrors(t, ItemPatch{Title: &empty, MaxParticipants: &zero}.Validate())
	assert.Contains(t, errs, "title")
	assert.Contains(t, errs, "max_participants")
}

func TestBookingValidate(t *testing.T) {
	assert.NoError(t, Booking{UserID: "u1", Status: BookingPending}.Validate())
	assert.NoError(t, Booking{UserID: "u1"}.Validate())
	errs := fieldErrors(t, Booking{Status: BookingCancelled}.Validate())
	assert.Contains(t, errs, "user_id")
	assert.Contains(t, errs, "status")
	assert.True(t, Booking{Status: BookingConfirmed}.IsActive())
	assert.False(t, Booking{Status: BookingCancelled}.IsActive())
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile(Identity{ID: "u1", Email: "ana.silva@example.com"})
	assert.Equal(t, "ana.silva", p.FullName)
	assert.Equal(t, "en", p.Language)
	assert.True(t, p.NotificationsEnabled)
	assert.Equal(t, []string{}, p.Interests)

	assert.Equal(t, "Ana", DefaultProfile(Identity{FullName: " Ana ", Email: "a@b.c"}).FullName)
	assert.Equal(t, "User", DefaultProfile(Identity{}).FullName)
}

func TestPaymentMethodValidate(t *testing.T) {
	ok := PaymentMethod{UserID: "u1", Type: "card", CardType: "visa", LastFourDigits: "4242", ExpiryMonth: 1, ExpiryYear: 2031}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.LastFourDigits = "42x2"
	bad.ExpiryMonth = 13
	errs := fieldErrors(t, bad.Validate())
	assert.Contains(t, errs, "last_four_digits")
	assert.Contains(t, errs, "expiry_month")
}

func TestFavoriteValidate(t *testing.T) {
	assert.NoError(t, Favorite{UserID: "u1", ItemID: "e1", ItemType: KindEvent}.Validate())
	errs := fieldErrors(t, Favorite{UserID: "u1", ItemID: "e1", ItemType: "concert"}.Validate())
	assert.Contains(t, errs, "item_type")
}
