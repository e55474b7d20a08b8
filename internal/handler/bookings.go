package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jellyjess/nail-salon/internal/middleware"
	"github.com/jellyjess/nail-salon/internal/model"
	"github.com/jellyjess/nail-salon/internal/repository"
	"github.com/jellyjess/nail-salon/internal/service"
)

// BookingHandler serves the booking form and the admin booking screens.
// Writes go through the service so slot availability follows.
type BookingHandler struct {
	Service  *service.BookingService
	Bookings *repository.BookingRepo
	Log      *zap.Logger
}

func NewBookingHandler(s *service.BookingService, b *repository.BookingRepo, log *zap.Logger) *BookingHandler {
	return &BookingHandler{Service: s, Bookings: b, Log: log}
}

// Create books a slot for the signed-in user.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req model.BookingRequest
	if err := bindValid(c, &req); err != nil {
		return invalid(c, err)
	}

	// payment capture can take a while on top of the database work
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*dbTimeout)
	defer cancel()

	b, err := h.Service.Book(ctx, req, &uid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotUnavailable):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "slot not available"})
		case errors.Is(err, service.ErrUnknownService):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "service not found"})
		case errors.Is(err, service.ErrPaymentFailed):
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment failed"})
		}
		return serverError(c, h.Log, "failed to create booking", err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	list, err := h.Bookings.List(ctx)
	if err != nil {
		return serverError(c, h.Log, "failed to fetch bookings", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *BookingHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return notFound(c, "booking")
		}
		return serverError(c, h.Log, "failed to fetch booking", err)
	}
	return c.JSON(http.StatusOK, b)
}

// Update applies an admin edit, typically moving paymentStatus along.
func (h *BookingHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	var p model.BookingPatch
	if err := bindValid(c, &p); err != nil {
		return invalid(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, err := h.Service.Update(ctx, id, p)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return notFound(c, "booking")
		}
		return serverError(c, h.Log, "failed to update booking", err)
	}
	return c.JSON(http.StatusOK, b)
}

// Delete cancels a booking and frees its slot.
func (h *BookingHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Service.Cancel(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return notFound(c, "booking")
		}
		return serverError(c, h.Log, "failed to delete booking", err)
	}
	return c.NoContent(http.StatusNoContent)
}
