package router

import (
	"github.com/labstack/echo/v4"

	"github.com/jellyjess/nail-salon/internal/handler"
	"github.com/jellyjess/nail-salon/internal/middleware"
)

// RegisterForms registers the waitlist and contact form. Submissions are
// public but rate limited per client.
func RegisterForms(e *echo.Echo, h *handler.FormHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	admin := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireAdmin()}
	public := []echo.MiddlewareFunc{middleware.OptionalAuth(jwtSecret), limit}

	w := e.Group("/api/waitlist")
	w.POST("", h.JoinWaitlist, public...)
	w.GET("", h.ListWaitlist, admin...)
	w.DELETE("/:id", h.DeleteWaitlistEntry, admin...)

	c := e.Group("/api/contact")
	c.POST("", h.SendContact, public...)
	c.GET("", h.ListContact, admin...)
	c.PATCH("/:id/read", h.MarkContactRead, admin...)
	c.DELETE("/:id", h.DeleteContact, admin...)
}
