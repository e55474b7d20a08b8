package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jellyjess/nail-salon/internal/config"
	"github.com/jellyjess/nail-salon/internal/model"
	"github.com/jellyjess/nail-salon/internal/repository"
)

type MockBookings struct{ mock.Mock }

func (m *MockBookings) ListNeedingEmail(ctx context.Context) ([]model.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Booking), args.Error(1)
}

func (m *MockBookings) MarkEmailSent(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

type MockServices struct{ mock.Mock }

func (m *MockServices) GetByID(ctx context.Context, id uint64) (*model.Service, error) {
	args := m.Called(ctx, id)
	if s, ok := args.Get(0).(*model.Service); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSlots struct{ mock.Mock }

func (m *MockSlots) GetByID(ctx context.Context, id uint64) (*model.BookingSlot, error) {
	args := m.Called(ctx, id)
	if s, ok := args.Get(0).(*model.BookingSlot); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockMailer struct{ mock.Mock }

func (m *MockMailer) Send(ctx context.Context, msg Message) error {
	return m.Called(ctx, msg).Error(0)
}

var (
	manicure = &model.Service{ID: 1, Name: "Gel Manicure", Price: 4500, Duration: 60}
	slotNine = &model.BookingSlot{
		ID:        3,
		StartTime: time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC),
	}
)

func confirmed(id, serviceID, slotID uint64) model.Booking {
	return model.Booking{
		ID: id, CustomerName: "Jess", CustomerEmail: "jess@example.com",
		ServiceID: serviceID, SlotID: slotID, PaymentStatus: model.PaymentConfirmed,
	}
}

type workerFixture struct {
	bookings *MockBookings
	services *MockServices
	slots    *MockSlots
	mailer   *MockMailer
	worker   *Worker
	clock    time.Time
}

func newWorkerFixture(t *testing.T, cfg config.WorkerConfig) *workerFixture {
	t.Helper()
	f := &workerFixture{
		bookings: &MockBookings{},
		services: &MockServices{},
		slots:    &MockSlots{},
		mailer:   &MockMailer{},
		clock:    time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC),
	}
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	f.worker = NewWorker(f.bookings, f.services, f.slots, f.mailer, NewComposer(london, 1500), cfg, nil, zap.NewNop())
	f.worker.now = func() time.Time { return f.clock }
	return f
}

func TestRunOnce_SendsAndMarks(t *testing.T) {
	f := newWorkerFixture(t, config.WorkerConfig{})
	f.bookings.On("ListNeedingEmail", mock.Anything).Return([]model.Booking{confirmed(10, 1, 3)}, nil)
	f.services.On("GetByID", mock.Anything, uint64(1)).Return(manicure, nil)
	f.slots.On("GetByID", mock.Anything, uint64(3)).Return(slotNine, nil)
	f.mailer.On("Send", mock.Anything, mock.MatchedBy(func(m Message) bool {
		return m.To == "jess@example.com" && m.Subject == "Your Nail Appointment is Confirmed!"
	})).Return(nil)
	f.bookings.On("MarkEmailSent", mock.Anything, uint64(10)).Return(nil)

	assert.Equal(t, 1, f.worker.RunOnce(context.Background()))

	f.mailer.AssertExpectations(t)
	f.bookings.AssertExpectations(t)
}

func TestRunOnce_SendFailureIsNotMarked(t *testing.T) {
	f := newWorkerFixture(t, config.WorkerConfig{RetryBackoff: time.Minute, RetryBackoffMax: 10 * time.Minute})
	f.bookings.On("ListNeedingEmail", mock.Anything).Return([]model.Booking{confirmed(10, 1, 3)}, nil)
	f.services.On("GetByID", mock.Anything, uint64(1)).Return(manicure, nil)
	f.slots.On("GetByID", mock.Anything, uint64(3)).Return(slotNine, nil)
	f.mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("relay down")).Once()

	assert.Zero(t, f.worker.RunOnce(context.Background()))
	f.bookings.AssertNotCalled(t, "MarkEmailSent", mock.Anything, mock.Anything)

	// Still inside the backoff window: no new attempt.
	f.clock = f.clock.Add(30 * time.Second)
	assert.Zero(t, f.worker.RunOnce(context.Background()))
	f.mailer.AssertNumberOfCalls(t, "Send", 1)

	// After the window the send is retried and succeeds.
	f.clock = f.clock.Add(time.Minute)
	f.mailer.On("Send", mock.Anything, mock.Anything).Return(nil).Once()
	f.bookings.On("MarkEmailSent", mock.Anything, uint64(10)).Return(nil)

	assert.Equal(t, 1, f.worker.RunOnce(context.Background()))
	f.mailer.AssertNumberOfCalls(t, "Send", 2)
	assert.Empty(t, f.worker.failures)
}

func TestRunOnce_MissingServiceSkipsOnlyThatBooking(t *testing.T) {
	f := newWorkerFixture(t, config.WorkerConfig{})
	f.bookings.On("ListNeedingEmail", mock.Anything).
		Return([]model.Booking{confirmed(10, 99, 3), confirmed(11, 1, 3)}, nil)
	f.services.On("GetByID", mock.Anything, uint64(99)).Return(nil, repository.ErrServiceNotFound)
	f.services.On("GetByID", mock.Anything, uint64(1)).Return(manicure, nil)
	f.slots.On("GetByID", mock.Anything, uint64(3)).Return(slotNine, nil)
	f.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	f.bookings.On("MarkEmailSent", mock.Anything, uint64(11)).Return(nil)

	assert.Equal(t, 1, f.worker.RunOnce(context.Background()))

	f.bookings.AssertNotCalled(t, "MarkEmailSent", mock.Anything, uint64(10))
	f.mailer.AssertNumberOfCalls(t, "Send", 1)
}

func TestRunOnce_MissingSlotSkips(t *testing.T) {
	f := newWorkerFixture(t, config.WorkerConfig{})
	f.bookings.On("ListNeedingEmail", mock.Anything).Return([]model.Booking{confirmed(10, 1, 3)}, nil)
	f.services.On("GetByID", mock.Anything, uint64(1)).Return(manicure, nil)
	f.slots.On("GetByID", mock.Anything, uint64(3)).Return(nil, repository.ErrSlotNotFound)

	assert.Zero(t, f.worker.RunOnce(context.Background()))
	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestRunOnce_GivesUpAfterMaxAttempts(t *testing.T) {
	f := newWorkerFixture(t, config.WorkerConfig{MaxAttempts: 2})
	f.bookings.On("ListNeedingEmail", mock.Anything).Return([]model.Booking{confirmed(10, 1, 3)}, nil)
	f.services.On("GetByID", mock.Anything, uint64(1)).Return(manicure, nil)
	f.slots.On("GetByID", mock.Anything, uint64(3)).Return(slotNine, nil)
	f.mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("mailbox unavailable"))

	for i := 0; i < 4; i++ {
		f.worker.RunOnce(context.Background())
		f.clock = f.clock.Add(time.Hour)
	}

	f.mailer.AssertNumberOfCalls(t, "Send", 2)
	assert.True(t, f.worker.failures[10].gaveUp)
}

func TestRunOnce_SecondSweepDoesNotResend(t *testing.T) {
	f := newWorkerFixture(t, config.WorkerConfig{})
	f.bookings.On("ListNeedingEmail", mock.Anything).Return([]model.Booking{confirmed(10, 1, 3)}, nil).Once()
	f.bookings.On("ListNeedingEmail", mock.Anything).Return([]model.Booking{}, nil).Once()
	f.services.On("GetByID", mock.Anything, uint64(1)).Return(manicure, nil)
	f.slots.On("GetByID", mock.Anything, uint64(3)).Return(slotNine, nil)
	f.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	f.bookings.On("MarkEmailSent", mock.Anything, uint64(10)).Return(nil).Once()

	assert.Equal(t, 1, f.worker.RunOnce(context.Background()))
	assert.Zero(t, f.worker.RunOnce(context.Background()))

	f.mailer.AssertNumberOfCalls(t, "Send", 1)
	f.bookings.AssertExpectations(t)
}

func TestRunOnce_MarkFailureRetriesMarkOnly(t *testing.T) {
	f := newWorkerFixture(t, config.WorkerConfig{})
	f.bookings.On("ListNeedingEmail", mock.Anything).Return([]model.Booking{confirmed(10, 1, 3)}, nil).Twice()
	f.bookings.On("ListNeedingEmail", mock.Anything).Return([]model.Booking{}, nil).Once()
	f.services.On("GetByID", mock.Anything, uint64(1)).Return(manicure, nil)
	f.slots.On("GetByID", mock.Anything, uint64(3)).Return(slotNine, nil)
	f.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	f.bookings.On("MarkEmailSent", mock.Anything, uint64(10)).Return(errors.New("deadlock")).Once()
	f.bookings.On("MarkEmailSent", mock.Anything, uint64(10)).Return(nil).Once()

	// The send counts even though the row could not be updated.
	assert.Equal(t, 1, f.worker.RunOnce(context.Background()))
	assert.Contains(t, f.worker.unmarked, uint64(10))

	// Next sweep only repeats the update.
	assert.Zero(t, f.worker.RunOnce(context.Background()))
	assert.Empty(t, f.worker.unmarked)

	assert.Zero(t, f.worker.RunOnce(context.Background()))
	f.mailer.AssertNumberOfCalls(t, "Send", 1)
	f.bookings.AssertNumberOfCalls(t, "MarkEmailSent", 2)
}

func TestRunOnce_ForgetsBookingsNoLongerPending(t *testing.T) {
	f := newWorkerFixture(t, config.WorkerConfig{MaxAttempts: 1})
	f.bookings.On("ListNeedingEmail", mock.Anything).
		Return([]model.Booking{confirmed(10, 1, 3), confirmed(11, 1, 3)}, nil).Once()
	f.bookings.On("ListNeedingEmail", mock.Anything).
		Return([]model.Booking{confirmed(11, 1, 3)}, nil).Once()
	f.services.On("GetByID", mock.Anything, uint64(1)).Return(manicure, nil)
	f.slots.On("GetByID", mock.Anything, uint64(3)).Return(slotNine, nil)
	f.mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("mailbox unavailable"))

	f.worker.RunOnce(context.Background())
	require.Len(t, f.worker.failures, 2)

	// Booking 10 was cancelled between sweeps.
	f.worker.RunOnce(context.Background())
	assert.NotContains(t, f.worker.failures, uint64(10))
	assert.Contains(t, f.worker.failures, uint64(11))
	f.mailer.AssertNumberOfCalls(t, "Send", 2)
}

func TestRunOnce_ListErrorSendsNothing(t *testing.T) {
	f := newWorkerFixture(t, config.WorkerConfig{})
	f.bookings.On("ListNeedingEmail", mock.Anything).Return([]model.Booking(nil), errors.New("db down"))

	assert.Zero(t, f.worker.RunOnce(context.Background()))
	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestBackoff(t *testing.T) {
	w := &Worker{cfg: config.WorkerConfig{RetryBackoff: time.Minute, RetryBackoffMax: 5 * time.Minute}}

	assert.Equal(t, time.Minute, w.backoff(1))
	assert.Equal(t, 2*time.Minute, w.backoff(2))
	assert.Equal(t, 4*time.Minute, w.backoff(3))
	assert.Equal(t, 5*time.Minute, w.backoff(4))
	assert.Equal(t, 5*time.Minute, w.backoff(10))
}

func TestStart_RunsImmediatelyAndOnWake(t *testing.T) {
	f := newWorkerFixture(t, config.WorkerConfig{Interval: time.Hour})
	swept := make(chan struct{}, 4)
	f.bookings.On("ListNeedingEmail", mock.Anything).
		Return([]model.Booking{}, nil).
		Run(func(mock.Arguments) { swept <- struct{}{} })

	require.NoError(t, f.worker.Start(context.Background()))
	require.NoError(t, f.worker.Start(context.Background()))

	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("no sweep at start")
	}

	f.worker.Wake()
	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("no sweep after wake")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.worker.Stop(ctx))
	require.NoError(t, f.worker.Stop(ctx))
}
