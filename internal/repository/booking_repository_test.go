package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/evanto-api/internal/model"
)

var bookingCols = []string{"id", "event_id", "user_id", "status", "selected_seats", "confirmed_at", "created_at", "updated_at"}

func TestBookingRepo_ListActiveByItem(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE event_id = \? AND status IN \(\?, \?\)`).
		WithArgs("e1", "pending", "confirmed").
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow("b1", "e1", "u1", "confirmed", []byte(`[{"seat":"A1","row":"A"},{"seat":"A2"}]`), t0, t0, t0).
			AddRow("b2", "e1", "u2", "pending", nil, nil, t0, t0))

	got, err := NewBookingRepo(db).ListActiveByItem(context.Background(), "e1")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []model.Seat{{Seat: "A1", Row: "A"}, {Seat: "A2"}}, got[0].SelectedSeats)
	require.NotNil(t, got[0].ConfirmedAt)
	assert.Equal(t, []model.Seat{}, got[1].SelectedSeats)
	assert.Nil(t, got[1].ConfirmedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_CreateTx(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bookings`).
		WithArgs(sqlmock.AnyArg(), "e1", "u1", "pending", []byte(`[{"seat":"B4"}]`), nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	b := &model.Booking{EventID: "e1", UserID: "u1", SelectedSeats: []model.Seat{{Seat: "B4"}}}
	require.NoError(t, NewBookingRepo(db).CreateTx(context.Background(), tx, b))
	require.NoError(t, tx.Commit())

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.Nil(t, b.ConfirmedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_UpdateStatusCancelClearsSeats(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT user_id FROM bookings WHERE id = \?`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))
	mock.ExpectExec(`UPDATE bookings SET status = \?, selected_seats = \?, updated_at = \? WHERE id = \?`).
		WithArgs("cancelled", []byte("[]"), sqlmock.AnyArg(), "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \?`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow("b1", "e1", "u1", "cancelled", []byte("[]"), nil, t0, t0))

	b, err := NewBookingRepo(db).UpdateStatus(context.Background(), "b1", "u1", model.BookingCancelled)

	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
	assert.Empty(t, b.SelectedSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_UpdateStatusConfirmStampsTime(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT user_id FROM bookings WHERE id = \?`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))
	mock.ExpectExec(`UPDATE bookings SET status = \?, confirmed_at = \?, updated_at = \? WHERE id = \?`).
		WithArgs("confirmed", sqlmock.AnyArg(), sqlmock.AnyArg(), "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \?`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow("b1", "e1", "u1", "confirmed", []byte("[]"), t0, t0, t0))

	b, err := NewBookingRepo(db).UpdateStatus(context.Background(), "b1", "u1", model.BookingConfirmed)

	require.NoError(t, err)
	require.NotNil(t, b.ConfirmedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_UpdateStatusChecks(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)

	_, err := repo.UpdateStatus(context.Background(), "b1", "u1", "refunded")
	assert.Error(t, err)

	mock.ExpectQuery(`SELECT user_id FROM bookings WHERE id = \?`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("someone-else"))
	_, err = repo.UpdateStatus(context.Background(), "b1", "u1", model.BookingCancelled)
	assert.ErrorIs(t, err, ErrForbidden)

	mock.ExpectQuery(`SELECT user_id FROM bookings WHERE id = \?`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.UpdateStatus(context.Background(), "nope", "u1", model.BookingCancelled)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFavoriteRepo_AddIsIdempotent(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO favorites`).
		WithArgs("u1", "e1", "event", sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := NewFavoriteRepo(db).Add(context.Background(), model.Favorite{UserID: "u1", ItemID: "e1", ItemType: model.KindEvent})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteRepo_AddRejectsUnknownType(t *testing.T) {
	db, _ := newMock(t)

	err := NewFavoriteRepo(db).Add(context.Background(), model.Favorite{UserID: "u1", ItemID: "e1", ItemType: "concert"})

	assert.Error(t, err)
}

func TestFavoriteRepo_ListAndExists(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT user_id, item_id, item_type, created_at FROM favorites WHERE user_id = \?`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "item_id", "item_type", "created_at"}).
			AddRow("u1", "m1", "meetup", t0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM favorites`).
		WithArgs("u1", "m1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	repo := NewFavoriteRepo(db)
	favs, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, model.KindMeetup, favs[0].ItemType)

	ok, err := repo.Exists(context.Background(), "u1", "m1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
