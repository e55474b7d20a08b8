package router

import (
	"fmt"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/jellyjess/nail-salon/internal/handler"
	"github.com/jellyjess/nail-salon/internal/middleware"
)

// RegisterCatalog registers services, gallery and products. Reads are
// public and served through the response cache; writes are admin only.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, jwtSecret string, cache *middleware.ResponseCache) {
	admin := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireAdmin()}

	s := e.Group("/api/services")
	s.GET("", h.ListServices, cache.Middleware(middleware.CacheServices))
	s.GET("/:id", h.GetService, cache.Middleware(middleware.CacheServices))
	s.POST("", h.CreateService, admin...)
	s.PATCH("/:id", h.UpdateService, admin...)
	s.DELETE("/:id", h.DeleteService, admin...)

	g := e.Group("/api/gallery")
	g.GET("", h.ListGallery, cache.Middleware(middleware.CacheGallery))
	g.GET("/:id", h.GetGalleryItem, cache.Middleware(middleware.CacheGallery))
	g.POST("", h.CreateGalleryItem, admin...)
	g.PATCH("/:id", h.UpdateGalleryItem, admin...)
	g.DELETE("/:id", h.DeleteGalleryItem, admin...)

	p := e.Group("/api/products")
	p.GET("", h.ListProducts, cache.Middleware(middleware.CacheProducts))
	p.GET("/:id", h.GetProduct, cache.Middleware(middleware.CacheProducts))
	p.POST("", h.CreateProduct, admin...)
	p.PATCH("/:id", h.UpdateProduct, admin...)
	p.DELETE("/:id", h.DeleteProduct, admin...)
}

// RegisterUploads registers the admin image upload endpoint. The body
// limit leaves room for multipart framing around the image itself.
func RegisterUploads(e *echo.Echo, h *handler.UploadHandler, jwtSecret string) {
	mw := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireAdmin()}
	if h.MaxBytes > 0 {
		mw = append(mw, bodyLimit(h.MaxBytes+64<<10))
	}
	e.POST("/api/uploads", h.Upload, mw...)
}

// bodyLimit caps the request body at n bytes, rounded up to a kilobyte.
func bodyLimit(n int64) echo.MiddlewareFunc {
	return echomw.BodyLimitWithConfig(echomw.BodyLimitConfig{Limit: fmt.Sprintf("%dK", (n+1023)/1024)})
}
