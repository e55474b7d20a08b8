package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellyjess/nail-salon/internal/model"
)

var bookingCols = []string{"id", "customer_name", "customer_email", "customer_phone", "service_id", "slot_id", "user_id",
	"payment_status", "payment_id", "notes", "accepted_terms", "accepted_cancellation", "booking_date", "email_sent"}

func bookingRow(rows *sqlmock.Rows, id, slotID uint64, status string, emailSent bool) *sqlmock.Rows {
	return rows.AddRow(id, "Jess Customer", "jess@example.com", "07700 900123", 1, slotID, nil,
		status, nil, nil, true, true, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), emailSent)
}

func TestBookingRepo_ListNeedingEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE payment_status = ? AND email_sent = FALSE")).
		WithArgs(model.PaymentConfirmed).
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingCols), 11, 3, model.PaymentConfirmed, false))

	list, err := NewBookingRepo(db).ListNeedingEmail(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, uint64(11), list[0].ID)
	assert.Nil(t, list[0].UserID)
	assert.Nil(t, list[0].PaymentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(5).WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := NewBookingRepo(db).GetByID(context.Background(), 5)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestBookingRepo_CreateTx(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(21, 1))

	tx, err := db.Begin()
	require.NoError(t, err)
	b := &model.Booking{CustomerName: "Jess", ServiceID: 1, SlotID: 2, PaymentStatus: model.PaymentPending, BookingDate: time.Now()}
	require.NoError(t, NewBookingRepo(db).CreateTx(context.Background(), tx, b))
	assert.Equal(t, uint64(21), b.ID)
}

func TestBookingRepo_LockSlotIDTx(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT slot_id FROM bookings WHERE id = ? FOR UPDATE")).WithArgs(8).
		WillReturnRows(sqlmock.NewRows([]string{"slot_id"}))

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = NewBookingRepo(db).LockSlotIDTx(context.Background(), tx, 8)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestBookingRepo_Update(t *testing.T) {
	db, mock := newMock(t)
	status := model.PaymentCompleted
	notes := "bring reference photos"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET payment_status = ?, notes = ? WHERE id = ?")).
		WithArgs(status, notes, 4).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(4).
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingCols), 4, 2, status, true))

	b, err := NewBookingRepo(db).Update(context.Background(), 4, model.BookingPatch{PaymentStatus: &status, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, status, b.PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_SetPayment(t *testing.T) {
	db, mock := newMock(t)
	ref := "CAPTURE-1"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET payment_status = ?, payment_id = COALESCE(?, payment_id)")).
		WithArgs(model.PaymentConfirmed, ref, 4).WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewBookingRepo(db).SetPayment(context.Background(), 4, model.PaymentConfirmed, &ref)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestBookingRepo_MarkEmailSent(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET email_sent = TRUE WHERE id = ?")).WithArgs(4).
		WillReturnError(errors.New("connection reset"))

	assert.Error(t, NewBookingRepo(db).MarkEmailSent(context.Background(), 4))
}
