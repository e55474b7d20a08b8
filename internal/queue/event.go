// Package queue carries booking events over RabbitMQ. A confirmed booking
// is published once it is paid for; the consumer wakes the confirmation
// email worker so customers do not wait for the next sweep.
package queue

import "time"

// BookingConfirmedQueue is the durable queue booking confirmations go to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published when a booking's payment is
// confirmed. It carries enough to log or notify without a database read.
type BookingConfirmedEvent struct {
	BookingID     uint64    `json:"booking_id"`
	ServiceID     uint64    `json:"service_id"`
	SlotID        uint64    `json:"slot_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	PaymentID     string    `json:"payment_id,omitempty"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}
