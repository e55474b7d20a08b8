package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jellyjess/nail-salon/internal/model"
)

// ContactRepo stores contact form messages.
type ContactRepo struct{ db *sql.DB }

func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

func (r *ContactRepo) Create(ctx context.Context, in model.ContactInput) (*model.ContactMessage, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO contact_messages (name, email, subject, message, created_at) VALUES (?, ?, ?, ?, ?)",
		in.Name, in.Email, in.Subject, in.Message, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.ContactMessage{
		ID: uint64(id), Name: in.Name, Email: in.Email, Subject: in.Subject,
		Message: in.Message, CreatedAt: now,
	}, nil
}

// List returns messages newest first; unread and read are mixed.
func (r *ContactRepo) List(ctx context.Context) ([]model.ContactMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, email, subject, message, created_at, `read` FROM contact_messages ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ContactMessage{}
	for rows.Next() {
		var m model.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.CreatedAt, &m.Read); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkRead flags a message as read.
func (r *ContactRepo) MarkRead(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "UPDATE contact_messages SET `read` = TRUE WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrContactNotFound)
}

func (r *ContactRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM contact_messages WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrContactNotFound)
}
