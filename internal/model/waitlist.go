package model

import "time"

// WaitlistEntry is a signup for news about upcoming availability.
type WaitlistEntry struct {
	ID        uint64    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	Interests []string  `json:"interests"`
	CreatedAt time.Time `json:"createdAt"`
}

type WaitlistInput struct {
	FirstName string   `json:"firstName" validate:"required,max=100"`
	LastName  string   `json:"lastName" validate:"required,max=100"`
	Email     string   `json:"email" validate:"required,email"`
	Phone     *string  `json:"phone" validate:"omitempty,max=20"`
	Interests []string `json:"interests" validate:"max=20,dive,max=100"`
}
