package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jellyjess/nail-salon/internal/storage"
)

// Uploader stores an uploaded image and returns its public URL.
// *storage.ImageUploader implements it.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// UploadHandler accepts admin image uploads for services, gallery items
// and products and returns the public URL.
type UploadHandler struct {
	Images   Uploader // nil when object storage is not configured
	MaxBytes int64
	Log      *zap.Logger
}

func NewUploadHandler(images Uploader, maxBytes int64, log *zap.Logger) *UploadHandler {
	return &UploadHandler{Images: images, MaxBytes: maxBytes, Log: log}
}

// Upload reads the multipart field "image".
func (h *UploadHandler) Upload(c echo.Context) error {
	if h.Images == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "uploads not configured"})
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "image file required"})
	}
	if h.MaxBytes > 0 && fh.Size > h.MaxBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "image too large"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "image file required"})
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	url, err := h.Images.Upload(ctx, fh.Filename, f)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) {
			return c.JSON(http.StatusUnsupportedMediaType, echo.Map{"error": "unsupported image type"})
		}
		return serverError(c, h.Log, "upload failed", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"url": url})
}
