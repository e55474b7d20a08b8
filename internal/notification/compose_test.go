package notification

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellyjess/nail-salon/internal/model"
)

func TestComposerConfirmation(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	c := NewComposer(london, 1500)

	b := model.Booking{ID: 10, CustomerName: "Jess <3", CustomerEmail: "jess@example.com"}
	slot := model.BookingSlot{
		StartTime: time.Date(2026, 7, 13, 8, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 7, 13, 9, 30, 0, 0, time.UTC),
	}
	msg, err := c.Confirmation(b, model.Service{Name: "Gel Manicure", Price: 4500}, slot)
	require.NoError(t, err)

	assert.Equal(t, "jess@example.com", msg.To)
	assert.Equal(t, "Your Nail Appointment is Confirmed!", msg.Subject)
	for _, want := range []string{
		"Your Booking is Confirmed!",
		"Gel Manicure",
		"Monday, July 13, 2026",
		"9:00 AM - 10:30 AM",
		"£15.00 deposit paid",
		"£30.00 (to be paid at appointment)",
		"£45.00",
		"Jess &lt;3",
	} {
		assert.Contains(t, msg.HTML, want)
	}
	assert.True(t, strings.Contains(msg.Text, "Name: Jess <3"))
}

func TestComposerRemainingNeverNegative(t *testing.T) {
	c := NewComposer(time.UTC, 1500)
	msg, err := c.Confirmation(model.Booking{}, model.Service{Name: "Nail Repair", Price: 1000}, model.BookingSlot{})
	require.NoError(t, err)

	assert.Contains(t, msg.Text, "Remaining Amount: £0.00")
	assert.Contains(t, msg.Text, "Total: £10.00")
}
