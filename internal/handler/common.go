package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// dbTimeout bounds the database work of a single request.
const dbTimeout = 5 * time.Second

// CacheInvalidator drops cached catalog responses after an admin write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, group string) error
}

func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func badID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
}

func notFound(c echo.Context, what string) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
}

// serverError logs the cause and answers with a generic message.
func serverError(c echo.Context, log *zap.Logger, msg string, err error) error {
	log.Error(msg, zap.String("method", c.Request().Method), zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}

func invalidate(ctx context.Context, cache CacheInvalidator, group string, log *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, group); err != nil {
		log.Warn("cache invalidate failed", zap.String("group", group), zap.Error(err))
	}
}

func queryBool(c echo.Context, name string) bool {
	b, _ := strconv.ParseBool(c.QueryParam(name))
	return b
}
