package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jellyjess/nail-salon/internal/handler"
	"github.com/jellyjess/nail-salon/internal/middleware"
)

// RegisterSlots registers booking slot endpoints. Anyone may read slots
// and follow live changes; only admins change them.
func RegisterSlots(e *echo.Echo, h *handler.SlotHandler, live http.Handler, jwtSecret string) {
	admin := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireAdmin()}

	g := e.Group("/api/booking-slots")
	g.GET("", h.List)
	if live != nil {
		g.GET("/live", echo.WrapHandler(live))
	}
	g.GET("/:id", h.Get)
	g.POST("", h.Create, admin...)
	g.POST("/generate", h.Generate, admin...)
	g.PATCH("/:id", h.Update, admin...)
	g.DELETE("/:id", h.Delete, admin...)
	g.DELETE("", h.DeleteByDate, admin...)
}

// RegisterBookings registers booking endpoints. Any signed-in user may
// book; everything else is for admins.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	auth := middleware.JWTAuth(jwtSecret)
	admin := []echo.MiddlewareFunc{auth, middleware.RequireAdmin()}

	g := e.Group("/api/bookings")
	g.POST("", h.Create, auth)
	g.GET("", h.List, admin...)
	g.GET("/:id", h.Get, admin...)
	g.PATCH("/:id", h.Update, admin...)
	g.DELETE("/:id", h.Delete, admin...)
}
