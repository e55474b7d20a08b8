package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jellyjess/nail-salon/internal/model"
)

const serviceColumns = "id, name, description, price, duration, category, image_url"

// ServiceRepo provides CRUD for the services catalog.
type ServiceRepo struct{ db *sql.DB }

func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

// List returns all services ordered by category then name.
func (r *ServiceRepo) List(ctx context.Context) ([]model.Service, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+serviceColumns+" FROM services ORDER BY category, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Service{}
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.Duration, &s.Category, &s.ImageURL); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ServiceRepo) GetByID(ctx context.Context, id uint64) (*model.Service, error) {
	var s model.Service
	err := r.db.QueryRowContext(ctx, "SELECT "+serviceColumns+" FROM services WHERE id = ?", id).
		Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.Duration, &s.Category, &s.ImageURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *ServiceRepo) Create(ctx context.Context, in model.ServiceInput) (*model.Service, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO services (name, description, price, duration, category, image_url) VALUES (?, ?, ?, ?, ?, ?)",
		in.Name, in.Description, in.Price, in.Duration, in.Category, in.ImageURL)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Service{
		ID: uint64(id), Name: in.Name, Description: in.Description, Price: in.Price,
		Duration: in.Duration, Category: in.Category, ImageURL: in.ImageURL,
	}, nil
}

// Update applies the non-nil fields of p and returns the stored row.
func (r *ServiceRepo) Update(ctx context.Context, id uint64, p model.ServicePatch) (*model.Service, error) {
	var set setClause
	if p.Name != nil {
		set.add("name", *p.Name)
	}
	if p.Description != nil {
		set.add("description", *p.Description)
	}
	if p.Price != nil {
		set.add("price", *p.Price)
	}
	if p.Duration != nil {
		set.add("duration", *p.Duration)
	}
	if p.Category != nil {
		set.add("category", *p.Category)
	}
	if p.ImageURL != nil {
		set.add("image_url", *p.ImageURL)
	}
	if !set.empty() {
		q, args := set.build("services", "id", id)
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes a service. One still referenced by bookings yields
// ErrConflict.
func (r *ServiceRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM services WHERE id = ?", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrConflict
		}
		return err
	}
	return requireAffected(res, ErrServiceNotFound)
}
