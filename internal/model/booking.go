package model

import "time"

// Payment statuses. Confirmed bookings without a sent email are picked up
// by the notification worker.
const (
	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
	PaymentCompleted = "completed"
)

// Booking records a customer's appointment in one slot.
//
// Fields:
//  ID                   – primary key identifier.
//  CustomerName/Email/Phone – contact details captured by the booking form.
//  ServiceID            – treatment being booked.
//  SlotID               – reserved slot.
//  UserID               – account that made the booking, if any.
//  PaymentStatus        – pending, confirmed or completed.
//  PaymentID            – provider capture reference.
//  Notes                – free text from the customer.
//  AcceptedTerms        – late-arrival policy acknowledgement.
//  AcceptedCancellation – cancellation policy acknowledgement.
//  BookingDate          – when the booking was made.
//  EmailSent            – whether the confirmation email went out.
type Booking struct {
	ID                   uint64    `json:"id"`
	CustomerName         string    `json:"customerName"`
	CustomerEmail        string    `json:"customerEmail"`
	CustomerPhone        string    `json:"customerPhone"`
	ServiceID            uint64    `json:"serviceId"`
	SlotID               uint64    `json:"slotId"`
	UserID               *uint64   `json:"userId,omitempty"`
	PaymentStatus        string    `json:"paymentStatus"`
	PaymentID            *string   `json:"paymentId"`
	Notes                *string   `json:"notes"`
	AcceptedTerms        bool      `json:"acceptedTerms"`
	AcceptedCancellation bool      `json:"acceptedCancellation"`
	BookingDate          time.Time `json:"bookingDate"`
	EmailSent            bool      `json:"emailSent"`
}

// BookingRequest is the public booking form. Field names follow the form
// the website posts.
type BookingRequest struct {
	CustomerName             string  `json:"customerName" validate:"required,min=2,max=100"`
	Email                    string  `json:"email" validate:"required,email"`
	Phone                    string  `json:"phone" validate:"required,min=10,max=15,phone"`
	Date                     string  `json:"date" validate:"required,datetime=2006-01-02"`
	ServiceID                uint64  `json:"serviceId" validate:"required,gte=1"`
	SlotID                   uint64  `json:"slotId" validate:"required,gte=1"`
	Notes                    *string `json:"notes" validate:"omitempty,max=1000"`
	AcceptCancellationPolicy bool    `json:"acceptCancellationPolicy" validate:"eq=true"`
	AcceptLatePolicy         bool    `json:"acceptLatePolicy" validate:"eq=true"`
	PaymentOrderID           string  `json:"paymentOrderId" validate:"omitempty,max=64"`
}

// BookingPatch carries the admin-editable fields of a booking.
type BookingPatch struct {
	CustomerName  *string `json:"customerName" validate:"omitempty,min=2,max=100"`
	CustomerEmail *string `json:"customerEmail" validate:"omitempty,email"`
	CustomerPhone *string `json:"customerPhone" validate:"omitempty,min=10,max=15,phone"`
	PaymentStatus *string `json:"paymentStatus" validate:"omitempty,oneof=pending confirmed completed"`
	PaymentID     *string `json:"paymentId"`
	Notes         *string `json:"notes"`
	EmailSent     *bool   `json:"emailSent"`
}
