package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ErrUnsupportedImage is returned for files that are not JPEG, PNG or GIF.
var ErrUnsupportedImage = errors.New("unsupported image type")

var contentTypes = map[imaging.Format]string{
	imaging.JPEG: "image/jpeg",
	imaging.PNG:  "image/png",
	imaging.GIF:  "image/gif",
}

var extensions = map[imaging.Format]string{
	imaging.JPEG: ".jpg",
	imaging.PNG:  ".png",
	imaging.GIF:  ".gif",
}

// ImageUploader normalises gallery and product photos before storing them.
// Images wider than MaxWidth are scaled down keeping the aspect ratio.
type ImageUploader struct {
	store    Store
	maxWidth int
	now      func() time.Time
}

func NewImageUploader(store Store, maxWidth int) *ImageUploader {
	return &ImageUploader{store: store, maxWidth: maxWidth, now: time.Now}
}

// Upload decodes r, resizes it if needed, re-encodes it in its original
// format and stores it under uploads/YYYY/MM/<uuid>.<ext>.
func (u *ImageUploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		return "", ErrUnsupportedImage
	}
	ct, ok := contentTypes[format]
	if !ok {
		return "", ErrUnsupportedImage
	}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if u.maxWidth > 0 && img.Bounds().Dx() > u.maxWidth {
		img = imaging.Resize(img, u.maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	return u.store.Put(ctx, u.objectKey(format), ct, buf.Bytes())
}

func (u *ImageUploader) objectKey(format imaging.Format) string {
	now := u.now().UTC()
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + extensions[format]
	return path.Join("uploads", now.Format("2006"), now.Format("01"), name)
}
