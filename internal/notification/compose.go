package notification

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jellyjess/nail-salon/internal/model"
)

const (
	salonName           = "Jelly Jessy Nails"
	confirmationSubject = "Your Nail Appointment is Confirmed!"
)

//go:embed templates/*
var templateFS embed.FS

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/booking_confirmation.html"))
	textTmpl = template.Must(template.ParseFS(templateFS, "templates/booking_confirmation.txt"))
)

type confirmationData struct {
	Salon        string
	ServiceName  string
	Date         string
	StartTime    string
	EndTime      string
	CustomerName string
	Deposit      string
	Remaining    string
	Total        string
}

// Composer renders confirmation emails. Slot times are shown in the salon's
// zone and prices as pounds.
type Composer struct {
	loc          *time.Location
	depositPence int64
}

func NewComposer(loc *time.Location, depositPence int64) *Composer {
	if loc == nil {
		loc = time.UTC
	}
	return &Composer{loc: loc, depositPence: depositPence}
}

// Confirmation builds the message for b. The remaining amount never goes
// below zero for services cheaper than the deposit.
func (c *Composer) Confirmation(b model.Booking, svc model.Service, slot model.BookingSlot) (Message, error) {
	remaining := svc.Price - c.depositPence
	if remaining < 0 {
		remaining = 0
	}
	start, end := slot.StartTime.In(c.loc), slot.EndTime.In(c.loc)
	data := confirmationData{
		Salon:        salonName,
		ServiceName:  svc.Name,
		Date:         start.Format("Monday, January 2, 2006"),
		StartTime:    start.Format("3:04 PM"),
		EndTime:      end.Format("3:04 PM"),
		CustomerName: b.CustomerName,
		Deposit:      pounds(c.depositPence),
		Remaining:    pounds(remaining),
		Total:        pounds(svc.Price),
	}

	var html, text bytes.Buffer
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return Message{}, err
	}
	if err := textTmpl.Execute(&text, data); err != nil {
		return Message{}, err
	}
	return Message{
		To:      b.CustomerEmail,
		Subject: confirmationSubject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

func pounds(pence int64) string {
	return decimal.New(pence, -2).StringFixed(2)
}
