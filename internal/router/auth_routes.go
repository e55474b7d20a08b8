package router

import (
	"github.com/labstack/echo/v4"

	"github.com/jellyjess/nail-salon/internal/handler"
	"github.com/jellyjess/nail-salon/internal/middleware"
)

// RegisterAuth registers session endpoints under /api. Login and register
// go through the rate limiter; /api/user needs a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/api")
	g.POST("/register", a.Register, limit)
	g.POST("/login", a.Login, limit)
	g.POST("/logout", a.Logout)
	g.POST("/refresh", a.Refresh, limit)
	g.GET("/user", a.User, middleware.JWTAuth(jwtSecret))

	g.GET("/auth/google", a.GoogleStart)
	g.GET("/auth/google/callback", a.GoogleCallback)
}
