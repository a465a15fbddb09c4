// Package availability derives remaining capacity for a bookable item from
// its active booking rows and guards booking creation against overbooking.
package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/evanto-api/internal/model"
)

// DefaultCapacity applies when an item has no max_participants.  Existing
// clients rely on this exact value.
const DefaultCapacity = 63

// Availability is the derived capacity view of one item.
type Availability struct {
	TotalSeats     int      `json:"totalSeats"`
	AvailableSeats int      `json:"availableSeats"`
	BookedSeats    []string `json:"bookedSeats"`
	IsFullyBooked  bool     `json:"isFullyBooked"`
}

// Compute flattens the seat identifiers of every active booking and subtracts
// them from the item's capacity.  Seats without an identifier are skipped and
// duplicate identifiers across bookings are each counted.
func Compute(bookings []model.Booking, maxParticipants *int) Availability {
	booked := make([]string, 0)
	for _, b := range bookings {
		if !b.IsActive() {
			continue
		}
		for _, s := range b.SelectedSeats {
			if s.Seat == "" {
				continue
			}
			booked = append(booked, s.Seat)
		}
	}
	total := DefaultCapacity
	if maxParticipants != nil && *maxParticipants > 0 {
		total = *maxParticipants
	}
	available := total - len(booked)
	return Availability{
		TotalSeats:     total,
		AvailableSeats: available,
		BookedSeats:    booked,
		IsFullyBooked:  available <= 0,
	}
}

var (
	// ErrCapacityExceeded is matched by every *CapacityError.
	ErrCapacityExceeded = errors.New("not enough seats available")
	ErrFullyBooked      = errors.New("event is fully booked")
)

// CapacityError reports a request for more seats than remain.
type CapacityError struct {
	Requested int `json:"requested"`
	Available int `json:"available"`
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("not enough seats available. Requested: %d, Available: %d", e.Requested, e.Available)
}

func (e *CapacityError) Is(target error) bool { return target == ErrCapacityExceeded }

// Check decides whether a booking for requested seats may proceed.  The
// seat-count check runs first, so a request against a full item reports
// the numbers rather than ErrFullyBooked.
func Check(av Availability, requested int) error {
	if requested > av.AvailableSeats {
		return &CapacityError{Requested: requested, Available: av.AvailableSeats}
	}
	if av.IsFullyBooked {
		return ErrFullyBooked
	}
	return nil
}

// BookingSource lists the pending and confirmed bookings of an item.
type BookingSource interface {
	ListActiveByItem(ctx context.Context, itemID string) ([]model.Booking, error)
}

// Calculator computes availability from a BookingSource.
type Calculator struct {
	src BookingSource
}

func NewCalculator(src BookingSource) *Calculator { return &Calculator{src: src} }

// ForItem loads the item's active bookings and computes its availability.
func (c *Calculator) ForItem(ctx context.Context, itemID string, maxParticipants *int) (Availability, error) {
	bookings, err := c.src.ListActiveByItem(ctx, itemID)
	if err != nil {
		return Availability{}, err
	}
	return Compute(bookings, maxParticipants), nil
}
