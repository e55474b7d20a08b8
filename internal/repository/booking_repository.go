package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jellyjess/nail-salon/internal/model"
)

const bookingColumns = `id, customer_name, customer_email, customer_phone, service_id, slot_id, user_id,
	payment_status, payment_id, notes, accepted_terms, accepted_cancellation, booking_date, email_sent`

// BookingRepo persists bookings. Writes that must agree with the slot's
// availability flag run inside a caller-supplied transaction.
type BookingRepo struct{ db *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

func (r *BookingRepo) DB() *sql.DB { return r.db }

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(s rowScanner) (*model.Booking, error) {
	var b model.Booking
	err := s.Scan(&b.ID, &b.CustomerName, &b.CustomerEmail, &b.CustomerPhone, &b.ServiceID, &b.SlotID,
		&b.UserID, &b.PaymentStatus, &b.PaymentID, &b.Notes, &b.AcceptedTerms, &b.AcceptedCancellation,
		&b.BookingDate, &b.EmailSent)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// List returns all bookings, newest first.
func (r *BookingRepo) List(ctx context.Context) ([]model.Booking, error) {
	return r.query(ctx, "SELECT "+bookingColumns+" FROM bookings ORDER BY booking_date DESC, id DESC")
}

// ListNeedingEmail returns confirmed bookings whose confirmation email has
// not been sent, oldest first.
func (r *BookingRepo) ListNeedingEmail(ctx context.Context) ([]model.Booking, error) {
	return r.query(ctx, "SELECT "+bookingColumns+
		" FROM bookings WHERE payment_status = ? AND email_sent = FALSE ORDER BY id", model.PaymentConfirmed)
}

func (r *BookingRepo) query(ctx context.Context, q string, args ...interface{}) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// CreateTx inserts a booking within tx and fills in its ID. BookingDate
// must be set by the caller.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (customer_name, customer_email, customer_phone, service_id, slot_id, user_id,
			payment_status, payment_id, notes, accepted_terms, accepted_cancellation, booking_date, email_sent)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.CustomerName, b.CustomerEmail, b.CustomerPhone, b.ServiceID, b.SlotID, b.UserID,
		b.PaymentStatus, b.PaymentID, b.Notes, b.AcceptedTerms, b.AcceptedCancellation, b.BookingDate.UTC(), b.EmailSent)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// LockSlotIDTx locks the booking row and returns the slot it holds.
func (r *BookingRepo) LockSlotIDTx(ctx context.Context, tx *sql.Tx, id uint64) (uint64, error) {
	var slotID uint64
	err := tx.QueryRowContext(ctx, "SELECT slot_id FROM bookings WHERE id = ? FOR UPDATE", id).Scan(&slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrBookingNotFound
		}
		return 0, err
	}
	return slotID, nil
}

func (r *BookingRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrBookingNotFound)
}

// Update applies the admin-editable fields and returns the stored booking.
func (r *BookingRepo) Update(ctx context.Context, id uint64, p model.BookingPatch) (*model.Booking, error) {
	var set setClause
	if p.CustomerName != nil {
		set.add("customer_name", *p.CustomerName)
	}
	if p.CustomerEmail != nil {
		set.add("customer_email", *p.CustomerEmail)
	}
	if p.CustomerPhone != nil {
		set.add("customer_phone", *p.CustomerPhone)
	}
	if p.PaymentStatus != nil {
		set.add("payment_status", *p.PaymentStatus)
	}
	if p.PaymentID != nil {
		set.add("payment_id", *p.PaymentID)
	}
	if p.Notes != nil {
		set.add("notes", *p.Notes)
	}
	if p.EmailSent != nil {
		set.add("email_sent", *p.EmailSent)
	}
	if !set.empty() {
		q, args := set.build("bookings", "id", id)
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// SetPayment records the payment outcome of a booking.
func (r *BookingRepo) SetPayment(ctx context.Context, id uint64, status string, paymentID *string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE bookings SET payment_status = ?, payment_id = COALESCE(?, payment_id) WHERE id = ?",
		status, paymentID, id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrBookingNotFound)
}

// MarkEmailSent flags a booking's confirmation email as delivered.
func (r *BookingRepo) MarkEmailSent(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE bookings SET email_sent = TRUE WHERE id = ?", id)
	return err
}
