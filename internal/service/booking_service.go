package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/evanto-api/internal/availability"
	"github.com/iliyamo/evanto-api/internal/cache"
	"github.com/iliyamo/evanto-api/internal/metrics"
	"github.com/iliyamo/evanto-api/internal/model"
	"github.com/iliyamo/evanto-api/internal/realtime"
	"github.com/iliyamo/evanto-api/internal/repository"
)

type BookingService struct {
	notifier
	db       *sql.DB
	items    *repository.ItemRepo
	bookings *repository.BookingRepo
}

func NewBookingService(db *sql.DB, items *repository.ItemRepo, bookings *repository.BookingRepo, inv Invalidator, pub ChangePublisher, logger echo.Logger) *BookingService {
	return &BookingService{
		notifier: notifier{inv: inv, pub: pub, logger: logger},
		db:       db,
		items:    items,
		bookings: bookings,
	}
}

// Create inserts b after checking the event has room for its seats.  The
// event row stays locked from the capacity read until commit, so concurrent
// bookings for one event are checked one at a time.
func (s *BookingService) Create(ctx context.Context, b *model.Booking) (err error) {
	if err := b.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if b.EventID != "" {
		if err = s.guard(ctx, tx, b); err != nil {
			return err
		}
	}
	if err = s.bookings.CreateTx(ctx, tx, b); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	metrics.TrackBookingCreated()
	s.changed(ctx, "bookings", realtime.OpInsert, b.ID, cache.Bookings, cache.SeatAvailability)
	return nil
}

func (s *BookingService) guard(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	maxP, err := s.items.LockCapacityTx(ctx, tx, b.EventID)
	if err != nil {
		return err
	}
	active, err := s.bookings.ListActiveByItemTx(ctx, tx, b.EventID)
	if err != nil {
		return err
	}
	err = availability.Check(availability.Compute(active, maxP), len(b.SelectedSeats))
	switch {
	case errors.Is(err, availability.ErrCapacityExceeded):
		metrics.TrackBookingRejected(metrics.ReasonCapacity)
	case errors.Is(err, availability.ErrFullyBooked):
		metrics.TrackBookingRejected(metrics.ReasonFullyBooked)
	}
	return err
}

// ListByUser returns the user's bookings, newest first.
func (s *BookingService) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	var out []model.Booking
	err := ReadRetry(ctx, func(ctx context.Context) (err error) {
		out, err = s.bookings.ListByUser(ctx, userID)
		return err
	})
	return out, err
}

// UpdateStatus moves one of the user's bookings to status.
func (s *BookingService) UpdateStatus(ctx context.Context, id, userID, status string) (model.Booking, error) {
	b, err := s.bookings.UpdateStatus(ctx, id, userID, status)
	if err != nil {
		return model.Booking{}, err
	}
	s.changed(ctx, "bookings", realtime.OpUpdate, id, cache.Bookings, cache.SeatAvailability)
	return b, nil
}
