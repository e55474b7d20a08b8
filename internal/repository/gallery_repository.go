package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jellyjess/nail-salon/internal/model"
)

const galleryColumns = "id, title, description, image_url, category, featured"

// GalleryRepo provides CRUD for portfolio images.
type GalleryRepo struct{ db *sql.DB }

func NewGalleryRepo(db *sql.DB) *GalleryRepo { return &GalleryRepo{db: db} }

// List returns gallery items, newest first, optionally filtered by
// category and featured flag.
func (r *GalleryRepo) List(ctx context.Context, f model.GalleryFilter) ([]model.GalleryItem, error) {
	q := "SELECT " + galleryColumns + " FROM gallery_items WHERE 1=1"
	var args []interface{}
	if f.Category != "" {
		q += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.FeaturedOnly {
		q += " AND featured = TRUE"
	}
	q += " ORDER BY id DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.GalleryItem{}
	for rows.Next() {
		var g model.GalleryItem
		if err := rows.Scan(&g.ID, &g.Title, &g.Description, &g.ImageURL, &g.Category, &g.Featured); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *GalleryRepo) GetByID(ctx context.Context, id uint64) (*model.GalleryItem, error) {
	var g model.GalleryItem
	err := r.db.QueryRowContext(ctx, "SELECT "+galleryColumns+" FROM gallery_items WHERE id = ?", id).
		Scan(&g.ID, &g.Title, &g.Description, &g.ImageURL, &g.Category, &g.Featured)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGalleryItemNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *GalleryRepo) Create(ctx context.Context, in model.GalleryInput) (*model.GalleryItem, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO gallery_items (title, description, image_url, category, featured) VALUES (?, ?, ?, ?, ?)",
		in.Title, in.Description, in.ImageURL, in.Category, in.Featured)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.GalleryItem{
		ID: uint64(id), Title: in.Title, Description: in.Description,
		ImageURL: in.ImageURL, Category: in.Category, Featured: in.Featured,
	}, nil
}

func (r *GalleryRepo) Update(ctx context.Context, id uint64, p model.GalleryPatch) (*model.GalleryItem, error) {
	var set setClause
	if p.Title != nil {
		set.add("title", *p.Title)
	}
	if p.Description != nil {
		set.add("description", *p.Description)
	}
	if p.ImageURL != nil {
		set.add("image_url", *p.ImageURL)
	}
	if p.Category != nil {
		set.add("category", *p.Category)
	}
	if p.Featured != nil {
		set.add("featured", *p.Featured)
	}
	if !set.empty() {
		q, args := set.build("gallery_items", "id", id)
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *GalleryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM gallery_items WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrGalleryItemNotFound)
}
