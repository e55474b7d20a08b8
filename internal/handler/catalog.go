package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jellyjess/nail-salon/internal/middleware"
	"github.com/jellyjess/nail-salon/internal/model"
	"github.com/jellyjess/nail-salon/internal/repository"
)

// CatalogHandler serves the public catalog (services, gallery, shop
// products) and its admin CRUD. Every write drops the cached listings of
// the group it touched.
type CatalogHandler struct {
	Services *repository.ServiceRepo
	Gallery  *repository.GalleryRepo
	Products *repository.ProductRepo
	Cache    CacheInvalidator
	Log      *zap.Logger
}

func NewCatalogHandler(s *repository.ServiceRepo, g *repository.GalleryRepo, p *repository.ProductRepo, cache CacheInvalidator, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{Services: s, Gallery: g, Products: p, Cache: cache, Log: log}
}

// ----- services -----

func (h *CatalogHandler) ListServices(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	list, err := h.Services.List(ctx)
	if err != nil {
		return serverError(c, h.Log, "failed to fetch services", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *CatalogHandler) GetService(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	s, err := h.Services.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return notFound(c, "service")
		}
		return serverError(c, h.Log, "failed to fetch service", err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *CatalogHandler) CreateService(c echo.Context) error {
	var in model.ServiceInput
	if err := bindValid(c, &in); err != nil {
		return invalid(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	s, err := h.Services.Create(ctx, in)
	if err != nil {
		return serverError(c, h.Log, "failed to create service", err)
	}
	invalidate(ctx, h.Cache, middleware.CacheServices, h.Log)
	return c.JSON(http.StatusCreated, s)
}

func (h *CatalogHandler) UpdateService(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	var p model.ServicePatch
	if err := bindValid(c, &p); err != nil {
		return invalid(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	s, err := h.Services.Update(ctx, id, p)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return notFound(c, "service")
		}
		return serverError(c, h.Log, "failed to update service", err)
	}
	invalidate(ctx, h.Cache, middleware.CacheServices, h.Log)
	return c.JSON(http.StatusOK, s)
}

func (h *CatalogHandler) DeleteService(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Services.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrServiceNotFound):
			return notFound(c, "service")
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "service has bookings"})
		}
		return serverError(c, h.Log, "failed to delete service", err)
	}
	invalidate(ctx, h.Cache, middleware.CacheServices, h.Log)
	return c.NoContent(http.StatusNoContent)
}

// ----- gallery -----

// ListGallery accepts ?category= and ?featured=true.
func (h *CatalogHandler) ListGallery(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	list, err := h.Gallery.List(ctx, model.GalleryFilter{
		Category:     c.QueryParam("category"),
		FeaturedOnly: queryBool(c, "featured"),
	})
	if err != nil {
		return serverError(c, h.Log, "failed to fetch gallery items", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *CatalogHandler) GetGalleryItem(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	item, err := h.Gallery.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrGalleryItemNotFound) {
			return notFound(c, "gallery item")
		}
		return serverError(c, h.Log, "failed to fetch gallery item", err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CatalogHandler) CreateGalleryItem(c echo.Context) error {
	var in model.GalleryInput
	if err := bindValid(c, &in); err != nil {
		return invalid(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	item, err := h.Gallery.Create(ctx, in)
	if err != nil {
		return serverError(c, h.Log, "failed to create gallery item", err)
	}
	invalidate(ctx, h.Cache, middleware.CacheGallery, h.Log)
	return c.JSON(http.StatusCreated, item)
}

func (h *CatalogHandler) UpdateGalleryItem(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	var p model.GalleryPatch
	if err := bindValid(c, &p); err != nil {
		return invalid(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	item, err := h.Gallery.Update(ctx, id, p)
	if err != nil {
		if errors.Is(err, repository.ErrGalleryItemNotFound) {
			return notFound(c, "gallery item")
		}
		return serverError(c, h.Log, "failed to update gallery item", err)
	}
	invalidate(ctx, h.Cache, middleware.CacheGallery, h.Log)
	return c.JSON(http.StatusOK, item)
}

func (h *CatalogHandler) DeleteGalleryItem(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Gallery.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrGalleryItemNotFound) {
			return notFound(c, "gallery item")
		}
		return serverError(c, h.Log, "failed to delete gallery item", err)
	}
	invalidate(ctx, h.Cache, middleware.CacheGallery, h.Log)
	return c.NoContent(http.StatusNoContent)
}

// ----- products -----

// ListProducts accepts ?category= and ?featured=true.
func (h *CatalogHandler) ListProducts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	list, err := h.Products.List(ctx, model.ProductFilter{
		Category:     c.QueryParam("category"),
		FeaturedOnly: queryBool(c, "featured"),
	})
	if err != nil {
		return serverError(c, h.Log, "failed to fetch products", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *CatalogHandler) GetProduct(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badID(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return notFound(c, "product")
		}
		return serverError(c, h.Log, "failed to fetch product", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) CreateProduct(c echo.Context) error {
	var in model.ProductInput
	if err := bindValid(c, &in); err != nil {
		return invalid(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	p, err := h.Products.Create(ctx, in)
	if err != nil {
		return serverError(c, h.Log, "failed to create product", err)
	}
	invalidate(ctx, h.Cache, middleware.CacheProducts, h.Log)
	return c.JSON(http.StatusCreated, p)
}

func (h *CatalogHandler) UpdateProduct(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badID(c)
	}
	var patch model.ProductPatch
	if err := bindValid(c, &patch); err != nil {
		return invalid(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	p, err := h.Products.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return notFound(c, "product")
		}
		return serverError(c, h.Log, "failed to update product", err)
	}
	invalidate(ctx, h.Cache, middleware.CacheProducts, h.Log)
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) DeleteProduct(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badID(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return notFound(c, "product")
		}
		return serverError(c, h.Log, "failed to delete product", err)
	}
	invalidate(ctx, h.Cache, middleware.CacheProducts, h.Log)
	return c.NoContent(http.StatusNoContent)
}
