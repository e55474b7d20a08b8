package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jellyjess/nail-salon/internal/model"
	"github.com/jellyjess/nail-salon/internal/payment"
	"github.com/jellyjess/nail-salon/internal/queue"
	"github.com/jellyjess/nail-salon/internal/repository"
)

var (
	serviceCols = []string{"id", "name", "description", "price", "duration", "category", "image_url"}
	bookingCols = []string{"id", "customer_name", "customer_email", "customer_phone", "service_id", "slot_id", "user_id",
		"payment_status", "payment_id", "notes", "accepted_terms", "accepted_cancellation", "booking_date", "email_sent"}
	slotCols = []string{"id", "start_time", "end_time", "available"}
)

type fakeEvents struct {
	mu     sync.Mutex
	err    error
	events []queue.BookingConfirmedEvent
}

func (f *fakeEvents) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

type fakeLive struct{ events []model.SlotEvent }

func (f *fakeLive) Publish(ev model.SlotEvent) { f.events = append(f.events, ev) }

type fakeWaker struct{ n int }

func (f *fakeWaker) Wake() { f.n++ }

type fakePayments struct {
	capture payment.Capture
	err     error
	orders  []string
}

func (f *fakePayments) CaptureOrder(_ context.Context, orderID string) (payment.Capture, error) {
	f.orders = append(f.orders, orderID)
	return f.capture, f.err
}

func newTestService(t *testing.T, deps BookingDeps) (*BookingService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	deps.Slots = repository.NewSlotRepo(db)
	deps.Bookings = repository.NewBookingRepo(db)
	deps.Services = repository.NewServiceRepo(db)
	if deps.Location == nil {
		deps.Location = mustLoad(t, "Europe/London")
	}
	s := NewBookingService(db, deps, zap.NewNop())
	s.now = func() time.Time { return time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC) }
	return s, mock
}

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func bookingRequest(slotID uint64) model.BookingRequest {
	return model.BookingRequest{
		CustomerName:             " Jess Customer ",
		Email:                    "Jess@Example.com",
		Phone:                    "07700 900123",
		Date:                     "2026-01-12",
		ServiceID:                1,
		SlotID:                   slotID,
		AcceptCancellationPolicy: true,
		AcceptLatePolicy:         true,
	}
}

func expectService(mock sqlmock.Sqlmock, id uint64) {
	mock.ExpectQuery("FROM services WHERE id").WithArgs(id).
		WillReturnRows(sqlmock.NewRows(serviceCols).AddRow(id, "Gel Manicure", "Long-lasting gel", 4500, 60, "manicure", nil))
}

func expectClaim(mock sqlmock.Sqlmock, slotID uint64, bookingID int64) {
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE booking_slots SET available = FALSE WHERE id = ? AND available = TRUE")).
		WithArgs(slotID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(bookingID, 1))
	mock.ExpectCommit()
}

func expectRelease(mock sqlmock.Sqlmock, bookingID, slotID uint64) {
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT slot_id FROM bookings WHERE id = ? FOR UPDATE")).
		WithArgs(bookingID).WillReturnRows(sqlmock.NewRows([]string{"slot_id"}).AddRow(slotID))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings WHERE id = ?")).
		WithArgs(bookingID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE booking_slots SET available = TRUE WHERE id = ?")).
		WithArgs(slotID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func expectBookingRow(mock sqlmock.Sqlmock, id, slotID uint64, status string, paymentID interface{}) {
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(id).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(id, "Jess Customer", "jess@example.com", "07700 900123",
			1, slotID, nil, status, paymentID, nil, true, true, time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), false))
}

func TestBook_ClaimsSlotAndStaysPending(t *testing.T) {
	s, mock := newTestService(t, BookingDeps{})
	expectService(mock, 1)
	expectClaim(mock, 3, 10)

	b, err := s.Book(context.Background(), bookingRequest(3), nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(10), b.ID)
	assert.Equal(t, model.PaymentPending, b.PaymentStatus)
	assert.Equal(t, "Jess Customer", b.CustomerName)
	assert.Equal(t, "jess@example.com", b.CustomerEmail)
	assert.True(t, b.AcceptedTerms)
	assert.True(t, b.AcceptedCancellation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_SlotTaken(t *testing.T) {
	s, mock := newTestService(t, BookingDeps{})
	expectService(mock, 1)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE booking_slots SET available = FALSE").WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.Book(context.Background(), bookingRequest(3), nil)
	assert.ErrorIs(t, err, repository.ErrSlotUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_UnknownService(t *testing.T) {
	s, mock := newTestService(t, BookingDeps{})
	mock.ExpectQuery("FROM services WHERE id").WithArgs(1).WillReturnRows(sqlmock.NewRows(serviceCols))

	_, err := s.Book(context.Background(), bookingRequest(3), nil)
	assert.ErrorIs(t, err, ErrUnknownService)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_InsertFailureRollsBack(t *testing.T) {
	s, mock := newTestService(t, BookingDeps{})
	expectService(mock, 1)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE booking_slots SET available = FALSE").WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bookings").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.Book(context.Background(), bookingRequest(3), nil)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_AutoConfirmAnnounces(t *testing.T) {
	events, waker := &fakeEvents{}, &fakeWaker{}
	s, mock := newTestService(t, BookingDeps{AutoConfirm: true, Events: events, Mail: waker})
	expectService(mock, 1)
	expectClaim(mock, 3, 10)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET payment_status = ?")).
		WithArgs(model.PaymentConfirmed, nil, 10).WillReturnResult(sqlmock.NewResult(0, 1))
	expectBookingRow(mock, 10, 3, model.PaymentConfirmed, nil)

	b, err := s.Book(context.Background(), bookingRequest(3), nil)
	require.NoError(t, err)

	assert.Equal(t, model.PaymentConfirmed, b.PaymentStatus)
	require.Len(t, events.events, 1)
	assert.Equal(t, uint64(10), events.events[0].BookingID)
	assert.Equal(t, uint64(3), events.events[0].SlotID)
	assert.Zero(t, waker.n, "the broker consumer wakes the worker")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_CapturesDeposit(t *testing.T) {
	pay := &fakePayments{capture: payment.Capture{ProviderID: "CAP-1", Status: "COMPLETED"}}
	s, mock := newTestService(t, BookingDeps{Payments: pay, AutoConfirm: true})
	expectService(mock, 1)
	expectClaim(mock, 3, 10)
	mock.ExpectExec("UPDATE bookings SET payment_status").
		WithArgs(model.PaymentConfirmed, "CAP-1", 10).WillReturnResult(sqlmock.NewResult(0, 1))
	expectBookingRow(mock, 10, 3, model.PaymentConfirmed, "CAP-1")

	req := bookingRequest(3)
	req.PaymentOrderID = "ORDER-7"
	b, err := s.Book(context.Background(), req, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"ORDER-7"}, pay.orders)
	require.NotNil(t, b.PaymentID)
	assert.Equal(t, "CAP-1", *b.PaymentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_FailedCaptureReleasesSlot(t *testing.T) {
	pay := &fakePayments{err: payment.ErrCaptureFailed}
	events := &fakeEvents{}
	s, mock := newTestService(t, BookingDeps{Payments: pay, Events: events})
	expectService(mock, 1)
	expectClaim(mock, 3, 10)
	expectRelease(mock, 10, 3)

	req := bookingRequest(3)
	req.PaymentOrderID = "ORDER-7"
	_, err := s.Book(context.Background(), req, nil)

	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.Empty(t, events.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel_ReleasesSlot(t *testing.T) {
	live := &fakeLive{}
	s, mock := newTestService(t, BookingDeps{Live: live})
	expectRelease(mock, 10, 3)
	start := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM booking_slots WHERE id").WithArgs(3).
		WillReturnRows(sqlmock.NewRows(slotCols).AddRow(3, start, start.Add(time.Hour), true))

	require.NoError(t, s.Cancel(context.Background(), 10))

	require.Len(t, live.events, 1)
	assert.Equal(t, "updated", live.events[0].Type)
	require.NotNil(t, live.events[0].Slot)
	assert.True(t, live.events[0].Slot.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel_NotFound(t *testing.T) {
	s, mock := newTestService(t, BookingDeps{})
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT slot_id FROM bookings").WithArgs(99).WillReturnRows(sqlmock.NewRows([]string{"slot_id"}))
	mock.ExpectRollback()

	assert.ErrorIs(t, s.Cancel(context.Background(), 99), repository.ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A slot booked, released and booked again ends up claimed, and a second
// booking while it is claimed is refused.
func TestBookCancelRebook(t *testing.T) {
	s, mock := newTestService(t, BookingDeps{})

	expectService(mock, 1)
	expectClaim(mock, 3, 10)
	expectService(mock, 1)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE booking_slots SET available = FALSE").WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	expectRelease(mock, 10, 3)
	expectService(mock, 1)
	expectClaim(mock, 3, 11)

	ctx := context.Background()
	first, err := s.Book(ctx, bookingRequest(3), nil)
	require.NoError(t, err)

	_, err = s.Book(ctx, bookingRequest(3), nil)
	require.ErrorIs(t, err, repository.ErrSlotUnavailable)

	require.NoError(t, s.Cancel(ctx, first.ID))

	second, err := s.Book(ctx, bookingRequest(3), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), second.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_ConfirmingAnnounces(t *testing.T) {
	events, waker := &fakeEvents{}, &fakeWaker{}
	s, mock := newTestService(t, BookingDeps{Events: events, Mail: waker})
	expectBookingRow(mock, 10, 3, model.PaymentPending, nil)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET payment_status = ? WHERE id = ?")).
		WithArgs(model.PaymentConfirmed, 10).WillReturnResult(sqlmock.NewResult(0, 1))
	expectBookingRow(mock, 10, 3, model.PaymentConfirmed, nil)

	status := model.PaymentConfirmed
	b, err := s.Update(context.Background(), 10, model.BookingPatch{PaymentStatus: &status})
	require.NoError(t, err)

	assert.Equal(t, model.PaymentConfirmed, b.PaymentStatus)
	assert.Len(t, events.events, 1)
	assert.Zero(t, waker.n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_AlreadyConfirmedIsQuiet(t *testing.T) {
	waker := &fakeWaker{}
	s, mock := newTestService(t, BookingDeps{Mail: waker})
	expectBookingRow(mock, 10, 3, model.PaymentConfirmed, nil)
	mock.ExpectExec("UPDATE bookings SET payment_status").WillReturnResult(sqlmock.NewResult(0, 1))
	expectBookingRow(mock, 10, 3, model.PaymentConfirmed, nil)

	status := model.PaymentConfirmed
	_, err := s.Update(context.Background(), 10, model.BookingPatch{PaymentStatus: &status})
	require.NoError(t, err)
	assert.Zero(t, waker.n)
}

func TestBook_WakesWorkerWhenPublishFails(t *testing.T) {
	events, waker := &fakeEvents{err: queue.ErrOutboxFull}, &fakeWaker{}
	s, mock := newTestService(t, BookingDeps{AutoConfirm: true, Events: events, Mail: waker})
	expectService(mock, 1)
	expectClaim(mock, 3, 10)
	mock.ExpectExec("UPDATE bookings SET payment_status").WillReturnResult(sqlmock.NewResult(0, 1))
	expectBookingRow(mock, 10, 3, model.PaymentConfirmed, nil)

	_, err := s.Book(context.Background(), bookingRequest(3), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, waker.n)
}

func TestBook_AutoConfirmIgnoresUncapturedOrder(t *testing.T) {
	s, mock := newTestService(t, BookingDeps{AutoConfirm: true})
	expectService(mock, 1)
	expectClaim(mock, 3, 10)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET payment_status = ?")).
		WithArgs(model.PaymentConfirmed, nil, 10).WillReturnResult(sqlmock.NewResult(0, 1))
	expectBookingRow(mock, 10, 3, model.PaymentConfirmed, nil)

	req := bookingRequest(3)
	req.PaymentOrderID = "ORDER-FROM-CLIENT"
	b, err := s.Book(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Nil(t, b.PaymentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_ConfirmFailureKeepsBooking(t *testing.T) {
	waker := &fakeWaker{}
	s, mock := newTestService(t, BookingDeps{AutoConfirm: true, Mail: waker})
	expectService(mock, 1)
	expectClaim(mock, 3, 10)
	mock.ExpectExec("UPDATE bookings SET payment_status").WillReturnError(errors.New("connection reset"))

	b, err := s.Book(context.Background(), bookingRequest(3), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), b.ID)
	assert.Equal(t, model.PaymentPending, b.PaymentStatus)
	assert.Zero(t, waker.n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
