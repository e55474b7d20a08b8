package model

import "time"

// BookingSlot is a bookable time window. A slot is available until a
// booking references it and becomes available again when that booking is
// deleted.
//
// Fields:
//  ID        – primary key identifier.
//  StartTime – start of the appointment window (stored in UTC).
//  EndTime   – end of the window, always after StartTime.
//  Available – false while a booking holds the slot.
type BookingSlot struct {
	ID        uint64    `json:"id"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Available bool      `json:"available"`
}

// SlotInput is the body accepted when an admin creates a single slot.
type SlotInput struct {
	StartTime time.Time `json:"startTime" validate:"required"`
	EndTime   time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
	Available *bool     `json:"available"`
}

// SlotPatch carries a partial slot update; toggling Available is the usual case.
type SlotPatch struct {
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Available *bool      `json:"available"`
}

// SlotGenerateInput describes a working day to split into equal slots.
// Open and Close are wall-clock times ("09:00") in the salon time zone.
type SlotGenerateInput struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Open        string `json:"open" validate:"required,datetime=15:04"`
	Close       string `json:"close" validate:"required,datetime=15:04"`
	SlotMinutes int    `json:"slotMinutes" validate:"required,gte=15,lte=480"`
	GapMinutes  int    `json:"gapMinutes" validate:"gte=0,lte=240"`
}

// SlotEvent is pushed to live subscribers whenever a slot changes.
type SlotEvent struct {
	Type string       `json:"type"` // created, updated, deleted
	Slot *BookingSlot `json:"slot,omitempty"`
	ID   uint64       `json:"id"`
}
