package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jellyjess/nail-salon/internal/model"
)

// DayRange returns [start, end) of a YYYY-MM-DD day in loc. The end is
// the next local midnight, so DST days are 23 or 25 hours long.
func DayRange(day string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, day)
	}
	return start, start.AddDate(0, 0, 1), nil
}

func (s *BookingService) ListSlots(ctx context.Context, availableOnly bool) ([]model.BookingSlot, error) {
	return s.slots.List(ctx, availableOnly)
}

// ListSlotsByDate returns the slots starting on day in the salon's zone.
func (s *BookingService) ListSlotsByDate(ctx context.Context, day string, availableOnly bool) ([]model.BookingSlot, error) {
	from, to, err := DayRange(day, s.loc)
	if err != nil {
		return nil, err
	}
	return s.slots.ListBetween(ctx, from, to, availableOnly)
}

func (s *BookingService) GetSlot(ctx context.Context, id uint64) (*model.BookingSlot, error) {
	return s.slots.GetByID(ctx, id)
}

// CreateSlot adds one slot, available unless the input says otherwise.
func (s *BookingService) CreateSlot(ctx context.Context, in model.SlotInput) (*model.BookingSlot, error) {
	if !in.EndTime.After(in.StartTime) {
		return nil, ErrInvalidSlot
	}
	slot := &model.BookingSlot{StartTime: in.StartTime.UTC(), EndTime: in.EndTime.UTC(), Available: true}
	if in.Available != nil {
		slot.Available = *in.Available
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, err
	}
	s.publish(model.SlotEvent{Type: "created", ID: slot.ID, Slot: slot})
	return slot, nil
}

// GenerateSlots splits a working day into back-to-back slots of
// SlotMinutes, separated by GapMinutes. A slot that would run past the
// closing time is not created.
func (s *BookingService) GenerateSlots(ctx context.Context, in model.SlotGenerateInput) ([]model.BookingSlot, error) {
	slots, err := planSlots(in, s.loc)
	if err != nil {
		return nil, err
	}
	if err := s.slots.BulkCreate(ctx, slots); err != nil {
		return nil, err
	}
	for i := range slots {
		s.publish(model.SlotEvent{Type: "created", ID: slots[i].ID, Slot: &slots[i]})
	}
	return slots, nil
}

func planSlots(in model.SlotGenerateInput, loc *time.Location) ([]model.BookingSlot, error) {
	open, err := time.ParseInLocation("2006-01-02 15:04", in.Date+" "+in.Open, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	closing, err := time.ParseInLocation("2006-01-02 15:04", in.Date+" "+in.Close, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	if in.SlotMinutes <= 0 || !closing.After(open) {
		return nil, ErrInvalidSlot
	}

	length := time.Duration(in.SlotMinutes) * time.Minute
	step := length + time.Duration(in.GapMinutes)*time.Minute
	var out []model.BookingSlot
	for start := open; !start.Add(length).After(closing); start = start.Add(step) {
		out = append(out, model.BookingSlot{
			StartTime: start.UTC(),
			EndTime:   start.Add(length).UTC(),
			Available: true,
		})
	}
	if len(out) == 0 {
		return nil, ErrInvalidSlot
	}
	return out, nil
}

// UpdateSlot applies a partial update. Changed times are checked against
// the stored ones so a slot never ends before it starts.
func (s *BookingService) UpdateSlot(ctx context.Context, id uint64, p model.SlotPatch) (*model.BookingSlot, error) {
	if p.StartTime != nil || p.EndTime != nil {
		cur, err := s.slots.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		start, end := cur.StartTime, cur.EndTime
		if p.StartTime != nil {
			start = *p.StartTime
		}
		if p.EndTime != nil {
			end = *p.EndTime
		}
		if !end.After(start) {
			return nil, ErrInvalidSlot
		}
	}
	slot, err := s.slots.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.publish(model.SlotEvent{Type: "updated", ID: id, Slot: slot})
	return slot, nil
}

// DeleteSlot removes an unbooked slot. Booked slots yield
// repository.ErrConflict.
func (s *BookingService) DeleteSlot(ctx context.Context, id uint64) error {
	if err := s.slots.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(model.SlotEvent{Type: "deleted", ID: id})
	return nil
}

// DeleteAvailableSlotsForDate clears every unbooked slot on day and
// returns how many went. Booked slots are kept.
func (s *BookingService) DeleteAvailableSlotsForDate(ctx context.Context, day string) (int, error) {
	from, to, err := DayRange(day, s.loc)
	if err != nil {
		return 0, err
	}
	ids, err := s.slots.DeleteAvailableBetween(ctx, from, to)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.publish(model.SlotEvent{Type: "deleted", ID: id})
	}
	return len(ids), nil
}

func (s *BookingService) publish(ev model.SlotEvent) {
	if s.live != nil {
		s.live.Publish(ev)
	}
}
