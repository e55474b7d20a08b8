package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jellyjess/nail-salon/internal/model"
)

const productColumns = "id, name, description, price, category, image_url, featured, in_stock, created_at, updated_at"

// ProductRepo provides CRUD for shop products, keyed by UUID.
type ProductRepo struct{ db *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

func scanProduct(s rowScanner) (*model.Product, error) {
	var p model.Product
	err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.ImageURL,
		&p.Featured, &p.InStock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns products, newest first, filtered by category and featured.
func (r *ProductRepo) List(ctx context.Context, f model.ProductFilter) ([]model.Product, error) {
	q := "SELECT " + productColumns + " FROM products WHERE 1=1"
	var args []interface{}
	if f.Category != "" {
		q += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.FeaturedOnly {
		q += " AND featured = TRUE"
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *ProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

// Create inserts a product with a fresh UUID. InStock defaults to true.
func (r *ProductRepo) Create(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	inStock := true
	if in.InStock != nil {
		inStock = *in.InStock
	}
	now := time.Now().UTC().Truncate(time.Second)
	p := &model.Product{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price.Round(2),
		Category:    in.Category,
		ImageURL:    in.ImageURL,
		Featured:    in.Featured,
		InStock:     inStock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO products ("+productColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID.String(), p.Name, p.Description, p.Price.StringFixed(2), p.Category, p.ImageURL,
		p.Featured, p.InStock, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Update applies a partial update, bumps updated_at and returns the row.
func (r *ProductRepo) Update(ctx context.Context, id uuid.UUID, p model.ProductPatch) (*model.Product, error) {
	var set setClause
	if p.Name != nil {
		set.add("name", *p.Name)
	}
	if p.Description != nil {
		set.add("description", *p.Description)
	}
	if p.Price != nil {
		set.add("price", p.Price.Round(2).StringFixed(2))
	}
	if p.Category != nil {
		set.add("category", *p.Category)
	}
	if p.ImageURL != nil {
		set.add("image_url", *p.ImageURL)
	}
	if p.Featured != nil {
		set.add("featured", *p.Featured)
	}
	if p.InStock != nil {
		set.add("in_stock", *p.InStock)
	}
	if !set.empty() {
		set.add("updated_at", time.Now().UTC().Truncate(time.Second))
		q, args := set.build("products", "id", id.String())
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *ProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id.String())
	if err != nil {
		return err
	}
	return requireAffected(res, ErrProductNotFound)
}
