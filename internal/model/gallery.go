package model

// GalleryItem is a portfolio photo shown on the public site.
type GalleryItem struct {
	ID          uint64  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	ImageURL    string  `json:"imageUrl"`
	Category    string  `json:"category"`
	Featured    bool    `json:"featured"`
}

type GalleryInput struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description"`
	ImageURL    string  `json:"imageUrl" validate:"required,url"`
	Category    string  `json:"category" validate:"required,max=100"`
	Featured    bool    `json:"featured"`
}

type GalleryPatch struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,url"`
	Category    *string `json:"category" validate:"omitempty,max=100"`
	Featured    *bool   `json:"featured"`
}

// GalleryFilter narrows a gallery listing.
type GalleryFilter struct {
	Category     string
	FeaturedOnly bool
}
