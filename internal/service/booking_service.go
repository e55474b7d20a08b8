// Package service holds the booking flow: claiming and releasing slots,
// confirming payment and announcing changes to live clients and the email
// worker.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jellyjess/nail-salon/internal/metrics"
	"github.com/jellyjess/nail-salon/internal/model"
	"github.com/jellyjess/nail-salon/internal/payment"
	"github.com/jellyjess/nail-salon/internal/queue"
	"github.com/jellyjess/nail-salon/internal/repository"
)

var (
	// ErrUnknownService is returned when a booking names a service that does
	// not exist. It is a client error, unlike a 404 on the service itself.
	ErrUnknownService = errors.New("service not found")
	// ErrPaymentFailed is returned when the deposit could not be captured.
	// The booking has already been removed and its slot released.
	ErrPaymentFailed = errors.New("payment failed")
	// ErrInvalidSlot is returned for slot times that end before they start
	// or a generate request that yields no slots.
	ErrInvalidSlot = errors.New("invalid slot times")
	// ErrInvalidDate is returned for a day that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
)

// EventPublisher forwards booking confirmations to the message broker.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// SlotNotifier pushes slot changes to live subscribers.
type SlotNotifier interface {
	Publish(ev model.SlotEvent)
}

// Waker is poked after a booking is confirmed so the email goes out
// without waiting for the next sweep.
type Waker interface {
	Wake()
}

// BookingDeps are the collaborators of a BookingService. Only the
// repositories are required.
type BookingDeps struct {
	Slots    *repository.SlotRepo
	Bookings *repository.BookingRepo
	Services *repository.ServiceRepo

	Payments    payment.Provider
	Events      EventPublisher
	Live        SlotNotifier
	Mail        Waker
	Metrics     *metrics.Metrics
	Location    *time.Location
	AutoConfirm bool
}

// BookingService keeps slot availability in step with bookings. Every
// write that touches both tables runs in one transaction.
type BookingService struct {
	db       *sql.DB
	slots    *repository.SlotRepo
	bookings *repository.BookingRepo
	services *repository.ServiceRepo

	payments    payment.Provider
	events      EventPublisher
	live        SlotNotifier
	mail        Waker
	metrics     *metrics.Metrics
	loc         *time.Location
	autoConfirm bool

	log *zap.Logger
	now func() time.Time
}

func NewBookingService(db *sql.DB, deps BookingDeps, log *zap.Logger) *BookingService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &BookingService{
		db:          db,
		slots:       deps.Slots,
		bookings:    deps.Bookings,
		services:    deps.Services,
		payments:    deps.Payments,
		events:      deps.Events,
		live:        deps.Live,
		mail:        deps.Mail,
		metrics:     deps.Metrics,
		loc:         loc,
		autoConfirm: deps.AutoConfirm,
		log:         log,
		now:         time.Now,
	}
}

// Book claims the slot and records the booking in one transaction. Of two
// requests racing for a slot exactly one succeeds; the other gets
// repository.ErrSlotUnavailable. When the request carries a payment order
// it is captured after commit; a failed capture cancels the booking.
func (s *BookingService) Book(ctx context.Context, req model.BookingRequest, userID *uint64) (*model.Booking, error) {
	if _, err := s.services.GetByID(ctx, req.ServiceID); err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return nil, ErrUnknownService
		}
		return nil, err
	}

	b := &model.Booking{
		CustomerName:         strings.TrimSpace(req.CustomerName),
		CustomerEmail:        strings.ToLower(strings.TrimSpace(req.Email)),
		CustomerPhone:        strings.TrimSpace(req.Phone),
		ServiceID:            req.ServiceID,
		SlotID:               req.SlotID,
		UserID:               userID,
		PaymentStatus:        model.PaymentPending,
		Notes:                req.Notes,
		AcceptedTerms:        req.AcceptLatePolicy,
		AcceptedCancellation: req.AcceptCancellationPolicy,
		BookingDate:          s.now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.slots.MarkUnavailableTx(ctx, tx, req.SlotID); err != nil {
		if errors.Is(err, repository.ErrSlotUnavailable) && s.metrics != nil {
			s.metrics.BookingConflicts.Inc()
		}
		return nil, err
	}
	if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	if s.metrics != nil {
		s.metrics.BookingsCreated.Inc()
	}
	s.log.Info("booking created",
		zap.Uint64("booking_id", b.ID), zap.Uint64("slot_id", b.SlotID), zap.Uint64("service_id", b.ServiceID))
	s.broadcastSlot(ctx, "updated", b.SlotID)

	switch {
	case req.PaymentOrderID != "" && s.payments != nil:
		capture, err := s.payments.CaptureOrder(ctx, req.PaymentOrderID)
		if err != nil {
			s.log.Warn("deposit capture failed, cancelling booking",
				zap.Uint64("booking_id", b.ID), zap.String("order_id", req.PaymentOrderID), zap.Error(err))
			if cerr := s.Cancel(ctx, b.ID); cerr != nil {
				s.log.Error("cancel after failed capture", zap.Uint64("booking_id", b.ID), zap.Error(cerr))
			}
			return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
		return s.confirmAfterCommit(ctx, b, capture.ProviderID), nil
	case s.autoConfirm:
		// Nothing was captured, so a client-supplied order id is not stored.
		return s.confirmAfterCommit(ctx, b, ""), nil
	}
	return b, nil
}

// confirmAfterCommit confirms a booking that is already stored. The slot
// is taken either way, so a failure is logged and the pending booking is
// returned for the admin to confirm by hand.
func (s *BookingService) confirmAfterCommit(ctx context.Context, b *model.Booking, paymentID string) *model.Booking {
	confirmed, err := s.Confirm(ctx, b.ID, paymentID)
	if err != nil {
		s.log.Error("confirm booking", zap.Uint64("booking_id", b.ID), zap.String("payment_id", paymentID), zap.Error(err))
		return b
	}
	return confirmed
}

// Confirm marks a booking paid and announces it. An empty paymentID keeps
// whatever reference is already stored.
func (s *BookingService) Confirm(ctx context.Context, id uint64, paymentID string) (*model.Booking, error) {
	var pid *string
	if paymentID != "" {
		pid = &paymentID
	}
	if err := s.bookings.SetPayment(ctx, id, model.PaymentConfirmed, pid); err != nil {
		return nil, err
	}
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.announceConfirmed(ctx, b)
	return b, nil
}

// Update applies an admin edit. Moving a booking to confirmed triggers the
// same announcements as a paid booking.
func (s *BookingService) Update(ctx context.Context, id uint64, p model.BookingPatch) (*model.Booking, error) {
	var before *model.Booking
	if p.PaymentStatus != nil && *p.PaymentStatus == model.PaymentConfirmed {
		var err error
		if before, err = s.bookings.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}
	b, err := s.bookings.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if before != nil && before.PaymentStatus != model.PaymentConfirmed {
		s.announceConfirmed(ctx, b)
	}
	return b, nil
}

// Cancel deletes a booking and releases its slot in one transaction.
func (s *BookingService) Cancel(ctx context.Context, id uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	slotID, err := s.bookings.LockSlotIDTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := s.bookings.DeleteTx(ctx, tx, id); err != nil {
		return err
	}
	if err := s.slots.MarkAvailableTx(ctx, tx, slotID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	if s.metrics != nil {
		s.metrics.BookingsCancelled.Inc()
	}
	s.log.Info("booking cancelled", zap.Uint64("booking_id", id), zap.Uint64("slot_id", slotID))
	s.broadcastSlot(ctx, "updated", slotID)
	return nil
}

func (s *BookingService) announceConfirmed(ctx context.Context, b *model.Booking) {
	s.log.Info("booking confirmed", zap.Uint64("booking_id", b.ID))
	if s.events != nil {
		ev := queue.BookingConfirmedEvent{
			BookingID:     b.ID,
			ServiceID:     b.ServiceID,
			SlotID:        b.SlotID,
			CustomerName:  b.CustomerName,
			CustomerEmail: b.CustomerEmail,
			ConfirmedAt:   s.now().UTC(),
		}
		if b.PaymentID != nil {
			ev.PaymentID = *b.PaymentID
		}
		// The broker's consumer wakes the email worker. The periodic sweep
		// covers a lost event.
		if err := s.events.PublishBookingConfirmed(ctx, ev); err == nil {
			return
		}
	}
	if s.mail != nil {
		s.mail.Wake()
	}
}

// broadcastSlot reloads a slot and pushes it to live subscribers.
func (s *BookingService) broadcastSlot(ctx context.Context, kind string, id uint64) {
	if s.live == nil {
		return
	}
	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			s.live.Publish(model.SlotEvent{Type: "deleted", ID: id})
			return
		}
		s.log.Warn("reload slot for broadcast", zap.Uint64("slot_id", id), zap.Error(err))
		return
	}
	s.live.Publish(model.SlotEvent{Type: kind, ID: id, Slot: slot})
}
