package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jellyjess/nail-salon/internal/model"
)

const slotColumns = "id, start_time, end_time, available"

// SlotRepo manages booking_slots. The availability flips used by the
// booking flow take a *sql.Tx so they commit together with the booking row.
type SlotRepo struct{ db *sql.DB }

func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// DB exposes the pool so callers can open transactions spanning repos.
func (r *SlotRepo) DB() *sql.DB { return r.db }

// List returns slots in start order. When availableOnly is set, booked
// slots are left out.
func (r *SlotRepo) List(ctx context.Context, availableOnly bool) ([]model.BookingSlot, error) {
	q := "SELECT " + slotColumns + " FROM booking_slots"
	if availableOnly {
		q += " WHERE available = TRUE"
	}
	q += " ORDER BY start_time, id"
	return r.query(ctx, q)
}

// ListBetween returns slots starting in [from, to).
func (r *SlotRepo) ListBetween(ctx context.Context, from, to time.Time, availableOnly bool) ([]model.BookingSlot, error) {
	q := "SELECT " + slotColumns + " FROM booking_slots WHERE start_time >= ? AND start_time < ?"
	if availableOnly {
		q += " AND available = TRUE"
	}
	q += " ORDER BY start_time, id"
	return r.query(ctx, q, from.UTC(), to.UTC())
}

func (r *SlotRepo) query(ctx context.Context, q string, args ...interface{}) ([]model.BookingSlot, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.BookingSlot{}
	for rows.Next() {
		var s model.BookingSlot
		if err := rows.Scan(&s.ID, &s.StartTime, &s.EndTime, &s.Available); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (*model.BookingSlot, error) {
	var s model.BookingSlot
	err := r.db.QueryRowContext(ctx, "SELECT "+slotColumns+" FROM booking_slots WHERE id = ?", id).
		Scan(&s.ID, &s.StartTime, &s.EndTime, &s.Available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create inserts one slot and fills in its ID.
func (r *SlotRepo) Create(ctx context.Context, s *model.BookingSlot) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO booking_slots (start_time, end_time, available) VALUES (?, ?, ?)",
		s.StartTime.UTC(), s.EndTime.UTC(), s.Available)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// BulkCreate inserts many slots in one statement. MySQL hands out
// consecutive auto-increment IDs for a single multi-row insert, so IDs are
// assigned from the first inserted one.
func (r *SlotRepo) BulkCreate(ctx context.Context, slots []model.BookingSlot) error {
	if len(slots) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("INSERT INTO booking_slots (start_time, end_time, available) VALUES ")
	args := make([]interface{}, 0, len(slots)*3)
	for i, s := range slots {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?)")
		args = append(args, s.StartTime.UTC(), s.EndTime.UTC(), s.Available)
	}
	res, err := r.db.ExecContext(ctx, b.String(), args...)
	if err != nil {
		return err
	}
	first, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for i := range slots {
		slots[i].ID = uint64(first) + uint64(i)
	}
	return nil
}

// Update applies a partial update and returns the stored slot.
func (r *SlotRepo) Update(ctx context.Context, id uint64, p model.SlotPatch) (*model.BookingSlot, error) {
	var set setClause
	if p.StartTime != nil {
		set.add("start_time", p.StartTime.UTC())
	}
	if p.EndTime != nil {
		set.add("end_time", p.EndTime.UTC())
	}
	if p.Available != nil {
		set.add("available", *p.Available)
	}
	if !set.empty() {
		q, args := set.build("booking_slots", "id", id)
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes a slot that is not booked. A booked slot yields
// ErrConflict so the booking never points at a missing slot.
func (r *SlotRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM booking_slots WHERE id = ? AND available = TRUE", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrConflict
}

// DeleteAvailableBetween removes unbooked slots starting in [from, to) and
// returns their IDs.
func (r *SlotRepo) DeleteAvailableBetween(ctx context.Context, from, to time.Time) ([]uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM booking_slots WHERE start_time >= ? AND start_time < ? AND available = TRUE FOR UPDATE",
		from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		q := "DELETE FROM booking_slots WHERE id IN (?" + strings.Repeat(", ?", len(ids)-1) + ")"
		args := make([]interface{}, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return ids, nil
}

// MarkUnavailableTx claims a slot for a booking. The conditional update is
// the serialization point: of two transactions racing for one slot, only
// the first sees a row affected. A missing or taken slot yields
// ErrSlotUnavailable.
func (r *SlotRepo) MarkUnavailableTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE booking_slots SET available = FALSE WHERE id = ? AND available = TRUE", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSlotUnavailable
	}
	return nil
}

// MarkAvailableTx releases a slot. A slot deleted in the meantime is not an
// error.
func (r *SlotRepo) MarkAvailableTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, "UPDATE booking_slots SET available = TRUE WHERE id = ?", id)
	return err
}
