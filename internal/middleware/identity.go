package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's ID set by JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get("user_id").(uint64)
	return id, ok && id > 0
}

// Role returns the role claim set by JWTAuth, or "" for anonymous requests.
func Role(c echo.Context) string {
	r, _ := c.Get("role").(string)
	return r
}

// subjectID converts a "sub" claim to a user ID. JSON numbers decode as
// float64; string subjects are accepted too.
func subjectID(v interface{}) (uint64, bool) {
	switch t := v.(type) {
	case float64:
		if t <= 0 {
			return 0, false
		}
		return uint64(t), true
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		return n, err == nil && n > 0
	}
	return 0, false
}

// rateKeyUser identifies the caller for rate limiting.
func rateKeyUser(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
