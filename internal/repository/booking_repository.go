package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/evanto-api/internal/model"
)

// BookingRepo persists bookings.  Selected seats are stored as a JSON array
// in the selected_seats column.  Rows are never deleted.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingColumns = "id, COALESCE(event_id, ''), user_id, status, selected_seats, confirmed_at, created_at, updated_at"

func scanBooking(s rowScanner) (model.Booking, error) {
	var (
		b         model.Booking
		seats     []byte
		confirmed sql.NullTime
	)
	if err := s.Scan(&b.ID, &b.EventID, &b.UserID, &b.Status, &seats, &confirmed, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return model.Booking{}, err
	}
	if confirmed.Valid {
		t := confirmed.Time
		b.ConfirmedAt = &t
	}
	if len(seats) > 0 {
		if err := json.Unmarshal(seats, &b.SelectedSeats); err != nil {
			return model.Booking{}, fmt.Errorf("decode selected_seats: %w", err)
		}
	}
	if b.SelectedSeats == nil {
		b.SelectedSeats = []model.Seat{}
	}
	return b, nil
}

func scanBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CreateTx inserts b within tx and fills its ID and timestamps.  Status
// defaults to pending.  The caller must commit or roll back tx.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	if b.Status == "" {
		b.Status = model.BookingPending
	}
	if b.SelectedSeats == nil {
		b.SelectedSeats = []model.Seat{}
	}
	seats, err := json.Marshal(b.SelectedSeats)
	if err != nil {
		return err
	}
	b.ID = uuid.NewString()
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	if b.Status == model.BookingConfirmed {
		b.ConfirmedAt = &now
	}
	var eventID interface{}
	if b.EventID != "" {
		eventID = b.EventID
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (id, event_id, user_id, status, selected_seats, confirmed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, eventID, b.UserID, b.Status, seats, b.ConfirmedAt, b.CreatedAt, b.UpdatedAt)
	return err
}

// GetByID loads a single booking.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id = ? LIMIT 1", id))
	if err != nil {
		return model.Booking{}, notFound(err)
	}
	return b, nil
}

// ListByUser returns a user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

// ListActiveByItem returns the pending and confirmed bookings of an event.
// It satisfies availability.BookingSource.
func (r *BookingRepo) ListActiveByItem(ctx context.Context, itemID string) ([]model.Booking, error) {
	return listActiveByItem(ctx, r.db, itemID)
}

// ListActiveByItemTx is ListActiveByItem inside tx, so it sees rows locked by
// the same transaction.
func (r *BookingRepo) ListActiveByItemTx(ctx context.Context, tx *sql.Tx, itemID string) ([]model.Booking, error) {
	return listActiveByItem(ctx, tx, itemID)
}

func listActiveByItem(ctx context.Context, q queryer, itemID string) ([]model.Booking, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE event_id = ? AND status IN (?, ?)",
		itemID, model.BookingPending, model.BookingConfirmed)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

// UpdateStatus moves a booking owned by userID to status.  Confirming stamps
// confirmed_at; cancelling releases the seats by clearing selected_seats.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id, userID, status string) (model.Booking, error) {
	if !model.ValidBookingStatus(status) {
		return model.Booking{}, fmt.Errorf("invalid booking status %q", status)
	}
	var owner string
	if err := r.db.QueryRowContext(ctx, "SELECT user_id FROM bookings WHERE id = ?", id).Scan(&owner); err != nil {
		return model.Booking{}, notFound(err)
	}
	if owner != userID {
		return model.Booking{}, ErrForbidden
	}

	now := time.Now().UTC()
	var err error
	switch status {
	case model.BookingConfirmed:
		_, err = r.db.ExecContext(ctx,
			"UPDATE bookings SET status = ?, confirmed_at = ?, updated_at = ? WHERE id = ?",
			status, now, now, id)
	case model.BookingCancelled:
		_, err = r.db.ExecContext(ctx,
			"UPDATE bookings SET status = ?, selected_seats = ?, updated_at = ? WHERE id = ?",
			status, []byte("[]"), now, id)
	default:
		_, err = r.db.ExecContext(ctx,
			"UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?",
			status, now, id)
	}
	if err != nil {
		return model.Booking{}, err
	}
	return r.GetByID(ctx, id)
}

// CountActiveByUser counts the pending and confirmed bookings of a user.
func (r *BookingRepo) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE user_id = ? AND status IN (?, ?)",
		userID, model.BookingPending, model.BookingConfirmed).Scan(&n)
	return n, err
}
