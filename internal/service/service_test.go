package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/evanto-api/internal/availability"
	"github.com/iliyamo/evanto-api/internal/cache"
	"github.com/iliyamo/evanto-api/internal/model"
	"github.com/iliyamo/evanto-api/internal/realtime"
	"github.com/iliyamo/evanto-api/internal/repository"
)

var (
	t0          = time.Date(2026, 11, 2, 18, 0, 0, 0, time.UTC)
	bookingCols = []string{"id", "event_id", "user_id", "status", "selected_seats", "confirmed_at", "created_at", "updated_at"}
	profileCols = []string{"id", "email", "full_name", "avatar_url", "bio", "location", "user_interests",
		"notifications_enabled", "language", "dark_mode", "created_at", "updated_at"}
)

type recorder struct {
	resources []string
	changes   []realtime.Change
}

func (r *recorder) Invalidate(_ context.Context, resources ...string) error {
	r.resources = append(r.resources, resources...)
	return nil
}

func (r *recorder) Publish(_ context.Context, c realtime.Change) error {
	r.changes = append(r.changes, c)
	return nil
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newBookingService(db *sql.DB, rec *recorder) *BookingService {
	return NewBookingService(db, repository.NewItemRepo(db), repository.NewBookingRepo(db), rec, rec, log.New("test"))
}

func seats(ids ...string) []model.Seat {
	out := make([]model.Seat, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Seat{Seat: id})
	}
	return out
}

func TestBookingService_CreateWithinCapacity(t *testing.T) {
	db, mock := newMock(t)
	rec := &recorder{}
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT max_participants FROM events WHERE id = \? FOR UPDATE`).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"max_participants"}).AddRow(nil))
	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE event_id = \? AND status IN \(\?, \?\)`).
		WithArgs("e1", model.BookingPending, model.BookingConfirmed).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow("b0", "e1", "u0", "confirmed", []byte(`[{"seat":"A1"}]`), t0, t0, t0))
	mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b := &model.Booking{EventID: "e1", UserID: "u1", SelectedSeats: seats("A2", "A3")}
	require.NoError(t, newBookingService(db, rec).Create(context.Background(), b))

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.Equal(t, []string{cache.Bookings, cache.SeatAvailability}, rec.resources)
	require.Len(t, rec.changes, 1)
	assert.Equal(t, "bookings.insert", rec.changes[0].RoutingKey())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingService_CreateOverCapacity(t *testing.T) {
	db, mock := newMock(t)
	rec := &recorder{}
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"max_participants"}).AddRow(2))
	mock.ExpectQuery(`FROM bookings WHERE event_id`).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow("b0", "e1", "u0", "pending", []byte(`[{"seat":"A1"}]`), nil, t0, t0))
	mock.ExpectRollback()

	b := &model.Booking{EventID: "e1", UserID: "u1", SelectedSeats: seats("B1", "B2")}
	err := newBookingService(db, rec).Create(context.Background(), b)

	var capErr *availability.CapacityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, 2, capErr.Requested)
	assert.Equal(t, 1, capErr.Available)
	assert.ErrorIs(t, err, availability.ErrCapacityExceeded)
	assert.Empty(t, rec.resources)
	assert.Empty(t, b.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingService_CreateFullyBooked(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"max_participants"}).AddRow(1))
	mock.ExpectQuery(`FROM bookings WHERE event_id`).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow("b0", "e1", "u0", "confirmed", []byte(`[{"seat":"A1"}]`), t0, t0, t0))
	mock.ExpectRollback()

	err := newBookingService(db, &recorder{}).Create(context.Background(), &model.Booking{EventID: "e1", UserID: "u1"})

	assert.ErrorIs(t, err, availability.ErrFullyBooked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingService_CreateUnknownEvent(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := newBookingService(db, &recorder{}).Create(context.Background(),
		&model.Booking{EventID: "nope", UserID: "u1", SelectedSeats: seats("A1")})

	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingService_CreateWithoutEventSkipsGuard(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b := &model.Booking{UserID: "u1", Status: model.BookingConfirmed}
	require.NoError(t, newBookingService(db, &recorder{}).Create(context.Background(), b))

	assert.NotNil(t, b.ConfirmedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingService_CreateValidatesFirst(t *testing.T) {
	db, mock := newMock(t)

	err := newBookingService(db, &recorder{}).Create(context.Background(),
		&model.Booking{EventID: "e1", Status: model.BookingCancelled})

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteService_ToggleTwiceRestoresState(t *testing.T) {
	db, mock := newMock(t)
	rec := &recorder{}
	svc := NewFavoriteService(repository.NewFavoriteRepo(db), rec, log.New("test"))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM favorites`).WithArgs("u1", "e1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO favorites`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM favorites`).WithArgs("u1", "e1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectExec(`DELETE FROM favorites`).WithArgs("u1", "e1").WillReturnResult(sqlmock.NewResult(0, 1))

	on, err := svc.Toggle(context.Background(), "u1", "e1", model.KindEvent)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = svc.Toggle(context.Background(), "u1", "e1", model.KindEvent)
	require.NoError(t, err)
	assert.False(t, on)

	assert.Equal(t, []string{cache.Favorites, cache.Favorites}, rec.resources)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentService_FirstCardBecomesDefault(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payment_methods WHERE user_id = \?`).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE payment_methods SET is_default = FALSE WHERE user_id = \?`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO payment_methods`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p := &model.PaymentMethod{UserID: "u1", Type: "card", CardType: "visa", LastFourDigits: "4242",
		ExpiryMonth: 4, ExpiryYear: 2030}
	require.NoError(t, NewPaymentService(repository.NewPaymentRepo(db), &recorder{}, log.New("test")).
		Create(context.Background(), p))

	assert.True(t, p.IsDefault)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentService_LaterCardsAreNotDefault(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payment_methods`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO payment_methods`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p := &model.PaymentMethod{UserID: "u1", Type: "card", CardType: "visa", LastFourDigits: "1111",
		ExpiryMonth: 4, ExpiryYear: 2030}
	require.NoError(t, NewPaymentService(repository.NewPaymentRepo(db), nil, log.New("test")).
		Create(context.Background(), p))

	assert.False(t, p.IsDefault)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newProfileService(db *sql.DB) *ProfileService {
	return NewProfileService(repository.NewUserRepo(db), repository.NewItemRepo(db), repository.NewBookingRepo(db), nil, log.New("test"))
}

func TestProfileService_EnsureExisting(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM users WHERE id = \?`).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(profileCols).
			AddRow("u1", "ana@example.com", "Ana", "", "", "", []byte(`[]`), true, "en", false, t0, t0))

	p, err := newProfileService(db).Ensure(context.Background(), model.Identity{ID: "u1", Email: "ana@example.com"})

	require.NoError(t, err)
	assert.Equal(t, "Ana", p.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileService_EnsureCreatesDefault(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM users WHERE id = \?`).WithArgs("u2").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO users`).WillReturnResult(sqlmock.NewResult(0, 1))

	p, err := newProfileService(db).Ensure(context.Background(), model.Identity{ID: "u2", Email: "Bo@Example.com"})

	require.NoError(t, err)
	assert.Equal(t, "u2", p.ID)
	assert.Equal(t, "bo@example.com", p.Email)
	assert.Equal(t, "Bo", p.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileService_EnsureRefetchesOnEmailConflict(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM users WHERE id = \?`).WithArgs("u3").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectQuery(`FROM users WHERE email = \?`).WithArgs("cy@example.com").
		WillReturnRows(sqlmock.NewRows(profileCols).
			AddRow("legacy", "cy@example.com", "Cy", "", "", "", nil, true, "en", false, t0, t0))

	p, err := newProfileService(db).Ensure(context.Background(), model.Identity{ID: "u3", Email: "cy@example.com"})

	require.NoError(t, err)
	assert.Equal(t, "legacy", p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileService_Stats(t *testing.T) {
	db, mock := newMock(t)
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM events WHERE user_id = \?`).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM meetups WHERE user_id = \?`).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE user_id = \?`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))

	st, err := newProfileService(db).Stats(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, model.UserStats{EventsCreated: 3, MeetupsCreated: 2, TotalCreated: 5, EventsAttending: 4}, st)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 2, func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("connection reset")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = Retry(context.Background(), 3, func(context.Context) error {
		calls++
		return repository.ErrNotFound
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 1, calls)

	calls = 0
	boom := errors.New("boom")
	err = Retry(context.Background(), 2, func(context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}
