package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product categories sold in the shop.
const (
	CategoryPressOnNails    = "press-on-nails"
	CategoryNailAccessories = "nail-accessories"
	CategoryGiftCards       = "gift-cards"
)

// Product is a shop item. Prices are pounds with two decimal places.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"imageUrl"`
	Featured    bool            `json:"featured"`
	InStock     bool            `json:"inStock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductInput is the body for creating a product. InStock defaults to true
// when omitted.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,min=2,max=255"`
	Description string          `json:"description" validate:"required,min=10"`
	Price       decimal.Decimal `json:"price" validate:"gte=0.01"`
	Category    string          `json:"category" validate:"required,oneof=press-on-nails nail-accessories gift-cards"`
	ImageURL    string          `json:"imageUrl" validate:"required,url"`
	Featured    bool            `json:"featured"`
	InStock     *bool           `json:"inStock"`
}

type ProductPatch struct {
	Name        *string          `json:"name" validate:"omitempty,min=2,max=255"`
	Description *string          `json:"description" validate:"omitempty,min=10"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,gte=0.01"`
	Category    *string          `json:"category" validate:"omitempty,oneof=press-on-nails nail-accessories gift-cards"`
	ImageURL    *string          `json:"imageUrl" validate:"omitempty,url"`
	Featured    *bool            `json:"featured"`
	InStock     *bool            `json:"inStock"`
}

// ProductFilter narrows a product listing.
type ProductFilter struct {
	Category     string
	FeaturedOnly bool
}
