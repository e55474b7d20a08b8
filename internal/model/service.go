package model

// Service is a bookable nail treatment. Price is held in pence.
type Service struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       int64   `json:"price"`
	Duration    int     `json:"duration"` // minutes
	Category    string  `json:"category"`
	ImageURL    *string `json:"imageUrl"`
}

// ServiceInput is the validated body for creating or replacing a service.
type ServiceInput struct {
	Name        string  `json:"name" validate:"required,min=2,max=255"`
	Description string  `json:"description" validate:"required"`
	Price       int64   `json:"price" validate:"gte=0"`
	Duration    int     `json:"duration" validate:"gt=0"`
	Category    string  `json:"category" validate:"required,max=100"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,url"`
}

// ServicePatch carries the fields of a partial service update.
type ServicePatch struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=255"`
	Description *string `json:"description"`
	Price       *int64  `json:"price" validate:"omitempty,gte=0"`
	Duration    *int    `json:"duration" validate:"omitempty,gt=0"`
	Category    *string `json:"category" validate:"omitempty,max=100"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,url"`
}
