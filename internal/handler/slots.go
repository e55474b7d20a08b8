package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jellyjess/nail-salon/internal/model"
	"github.com/jellyjess/nail-salon/internal/repository"
	"github.com/jellyjess/nail-salon/internal/service"
)

// SlotHandler exposes slot reads to everyone and slot management to admins.
type SlotHandler struct {
	Slots *service.BookingService
	Log   *zap.Logger
}

func NewSlotHandler(s *service.BookingService, log *zap.Logger) *SlotHandler {
	return &SlotHandler{Slots: s, Log: log}
}

// List returns slots ordered by start time. ?available=true hides booked
// slots and ?date=YYYY-MM-DD restricts to one salon-local day.
func (h *SlotHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	availableOnly := queryBool(c, "available")
	var (
		slots []model.BookingSlot
		err   error
	)
	if day := c.QueryParam("date"); day != "" {
		slots, err = h.Slots.ListSlotsByDate(ctx, day, availableOnly)
	} else {
		slots, err = h.Slots.ListSlots(ctx, availableOnly)
	}
	if err != nil {
		if errors.Is(err, service.ErrInvalidDate) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		return serverError(c, h.Log, "failed to fetch booking slots", err)
	}
	return c.JSON(http.StatusOK, slots)
}

func (h *SlotHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	slot, err := h.Slots.GetSlot(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return notFound(c, "booking slot")
		}
		return serverError(c, h.Log, "failed to fetch booking slot", err)
	}
	return c.JSON(http.StatusOK, slot)
}

func (h *SlotHandler) Create(c echo.Context) error {
	var in model.SlotInput
	if err := bindValid(c, &in); err != nil {
		return invalid(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	slot, err := h.Slots.CreateSlot(ctx, in)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSlot) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "endTime must be after startTime"})
		}
		return serverError(c, h.Log, "failed to create booking slot", err)
	}
	return c.JSON(http.StatusCreated, slot)
}

// Generate splits one working day into slots.
func (h *SlotHandler) Generate(c echo.Context) error {
	var in model.SlotGenerateInput
	if err := bindValid(c, &in); err != nil {
		return invalid(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	slots, err := h.Slots.GenerateSlots(ctx, in)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSlot) || errors.Is(err, service.ErrInvalidDate) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return serverError(c, h.Log, "failed to generate booking slots", err)
	}
	return c.JSON(http.StatusCreated, slots)
}

func (h *SlotHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	var p model.SlotPatch
	if err := bindValid(c, &p); err != nil {
		return invalid(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	slot, err := h.Slots.UpdateSlot(ctx, id, p)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotNotFound):
			return notFound(c, "booking slot")
		case errors.Is(err, service.ErrInvalidSlot):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "endTime must be after startTime"})
		}
		return serverError(c, h.Log, "failed to update booking slot", err)
	}
	return c.JSON(http.StatusOK, slot)
}

// Delete removes one slot. Booked slots are refused with 409.
func (h *SlotHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Slots.DeleteSlot(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotNotFound):
			return notFound(c, "booking slot")
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "slot is booked"})
		}
		return serverError(c, h.Log, "failed to delete booking slot", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteByDate clears the unbooked slots of ?date=YYYY-MM-DD.
func (h *SlotHandler) DeleteByDate(c echo.Context) error {
	day := c.QueryParam("date")
	if day == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	n, err := h.Slots.DeleteAvailableSlotsForDate(ctx, day)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDate) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		return serverError(c, h.Log, "failed to delete booking slots", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}
