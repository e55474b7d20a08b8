package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jellyjess/nail-salon/internal/model"
)

const userColumns = "id, username, password_hash, email, is_admin, google_id, created_at"

// UserRepo persists accounts in the users table.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a user whose password is already hashed and fills in the
// generated ID. A taken username yields ErrUsernameExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = normalizeEmail(u.Email)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, email, email_verified, is_admin, google_id) VALUES (?,?,?,?,?,?)",
		u.Username, u.PasswordHash, u.Email, u.EmailVerified && u.Email != nil, u.IsAdmin, u.GoogleID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrUsernameExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", strings.TrimSpace(username))
}

// GetByVerifiedEmail returns the oldest account whose address has been
// verified. Self-registered addresses never match.
func (r *UserRepo) GetByVerifiedEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? AND email_verified = TRUE ORDER BY id LIMIT 1",
		strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepo) GetByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE google_id=? LIMIT 1", googleID)
}

// LinkGoogle attaches a Google identity to an existing account.
func (r *UserRepo) LinkGoogle(ctx context.Context, id uint64, googleID string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET google_id=? WHERE id=?", googleID, id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrUserNotFound)
}

// SetAdmin grants or removes the admin flag.
func (r *UserRepo) SetAdmin(ctx context.Context, id uint64, isAdmin bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET is_admin=? WHERE id=?", isAdmin, id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrUserNotFound)
}

// SetPasswordHash replaces a stored hash, used to move legacy scrypt
// hashes to bcrypt after a successful login.
func (r *UserRepo) SetPasswordHash(ctx context.Context, id uint64, hash string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrUserNotFound)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg interface{}) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.IsAdmin, &u.GoogleID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func normalizeEmail(e *string) *string {
	if e == nil {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*e))
	if v == "" {
		return nil
	}
	return &v
}

// requireAffected maps a zero-row update or delete to notFound.
func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
