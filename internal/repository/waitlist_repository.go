package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jellyjess/nail-salon/internal/model"
)

// WaitlistRepo stores waitlist signups. Interests are kept as a JSON array.
type WaitlistRepo struct{ db *sql.DB }

func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

func (r *WaitlistRepo) Create(ctx context.Context, in model.WaitlistInput) (*model.WaitlistEntry, error) {
	interests := in.Interests
	if interests == nil {
		interests = []string{}
	}
	raw, err := json.Marshal(interests)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO waitlist_entries (first_name, last_name, email, phone, interests, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		in.FirstName, in.LastName, in.Email, in.Phone, string(raw), now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.WaitlistEntry{
		ID: uint64(id), FirstName: in.FirstName, LastName: in.LastName, Email: in.Email,
		Phone: in.Phone, Interests: interests, CreatedAt: now,
	}, nil
}

// List returns entries newest first.
func (r *WaitlistRepo) List(ctx context.Context) ([]model.WaitlistEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, first_name, last_name, email, phone, interests, created_at FROM waitlist_entries ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.WaitlistEntry{}
	for rows.Next() {
		var (
			w   model.WaitlistEntry
			raw []byte
		)
		if err := rows.Scan(&w.ID, &w.FirstName, &w.LastName, &w.Email, &w.Phone, &raw, &w.CreatedAt); err != nil {
			return nil, err
		}
		w.Interests = []string{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &w.Interests); err != nil {
				return nil, err
			}
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *WaitlistRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM waitlist_entries WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrWaitlistEntryNotFound)
}
