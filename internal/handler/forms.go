package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jellyjess/nail-salon/internal/model"
	"github.com/jellyjess/nail-salon/internal/repository"
)

// FormHandler takes the public waitlist and contact submissions and
// lets admins review them.
type FormHandler struct {
	Waitlist *repository.WaitlistRepo
	Contact  *repository.ContactRepo
	Log      *zap.Logger
}

func NewFormHandler(w *repository.WaitlistRepo, c *repository.ContactRepo, log *zap.Logger) *FormHandler {
	return &FormHandler{Waitlist: w, Contact: c, Log: log}
}

func (h *FormHandler) JoinWaitlist(c echo.Context) error {
	var in model.WaitlistInput
	if err := bindValid(c, &in); err != nil {
		return invalid(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	e, err := h.Waitlist.Create(ctx, in)
	if err != nil {
		return serverError(c, h.Log, "failed to join waitlist", err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *FormHandler) ListWaitlist(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	list, err := h.Waitlist.List(ctx)
	if err != nil {
		return serverError(c, h.Log, "failed to fetch waitlist", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *FormHandler) DeleteWaitlistEntry(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Waitlist.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrWaitlistEntryNotFound) {
			return notFound(c, "waitlist entry")
		}
		return serverError(c, h.Log, "failed to delete waitlist entry", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *FormHandler) SendContact(c echo.Context) error {
	var in model.ContactInput
	if err := bindValid(c, &in); err != nil {
		return invalid(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	m, err := h.Contact.Create(ctx, in)
	if err != nil {
		return serverError(c, h.Log, "failed to send message", err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *FormHandler) ListContact(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	list, err := h.Contact.List(ctx)
	if err != nil {
		return serverError(c, h.Log, "failed to fetch messages", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *FormHandler) MarkContactRead(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Contact.MarkRead(ctx, id); err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return notFound(c, "contact message")
		}
		return serverError(c, h.Log, "failed to update message", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "read": true})
}

func (h *FormHandler) DeleteContact(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Contact.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return notFound(c, "contact message")
		}
		return serverError(c, h.Log, "failed to delete message", err)
	}
	return c.NoContent(http.StatusNoContent)
}
