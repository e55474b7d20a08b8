package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jellyjess/nail-salon/internal/utils"
)

// AccessCookie is the cookie the browser session keeps its access token in.
const AccessCookie = "access_token"

// JWTAuth validates the access token from the Authorization header or the
// access_token cookie and stores the user ID (uint64) and role under
// "user_id" and "role". Requests without a valid token get 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !authenticate(c, secret) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			return next(c)
		}
	}
}

// OptionalAuth behaves like JWTAuth but lets anonymous requests through.
// Public routes use it so the rate limiter can key on the user.
func OptionalAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authenticate(c, secret)
			return next(c)
		}
	}
}

func authenticate(c echo.Context, secret string) bool {
	raw := bearerToken(c)
	if raw == "" {
		return false
	}
	claims, err := utils.ParseAccessToken(secret, raw)
	if err != nil {
		return false
	}
	uid, ok := subjectID(claims["sub"])
	if !ok {
		return false
	}
	role, _ := claims["role"].(string)
	c.Set("user_id", uid)
	c.Set("role", role)
	return true
}

func bearerToken(c echo.Context) string {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if ck, err := c.Cookie(AccessCookie); err == nil {
		return ck.Value
	}
	return ""
}
