package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jellyjess/nail-salon/internal/config"
	"github.com/jellyjess/nail-salon/internal/middleware"
	"github.com/jellyjess/nail-salon/internal/model"
	"github.com/jellyjess/nail-salon/internal/oauth"
	"github.com/jellyjess/nail-salon/internal/repository"
	"github.com/jellyjess/nail-salon/internal/utils"
)

// RefreshCookie holds the raw refresh token. It is only sent to /api.
const RefreshCookie = "refresh_token"

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Sessions *repository.SessionRepo
	Google   oauth.IdentityProvider // nil when Google sign-in is not configured
	Log      *zap.Logger
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, s *repository.SessionRepo, google oauth.IdentityProvider, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Sessions: s, Google: google, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Password string  `json:"password" validate:"required,min=6,max=128"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User   *model.User `json:"user"`
	Access tokenPart   `json:"access"`
}

// Register creates a customer account and signs it in. Admin accounts are
// never created here.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindValid(c, &req); err != nil {
		return invalid(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if req.Email != nil && h.Cfg.Admin.Email != "" && strings.EqualFold(strings.TrimSpace(*req.Email), h.Cfg.Admin.Email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email not available"})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return serverError(c, h.Log, "hash password failed", err)
	}
	u := &model.User{Username: req.Username, PasswordHash: hash, Email: req.Email}
	if err := h.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "username already exists"})
		}
		return serverError(c, h.Log, "create user failed", err)
	}

	resp, err := h.startSession(c, ctx, u)
	if err != nil {
		return serverError(c, h.Log, "create session failed", err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and starts a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindValid(c, &req); err != nil {
		return invalid(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return serverError(c, h.Log, "query failed", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if utils.NeedsRehash(u.PasswordHash) {
		if hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost); err == nil {
			if err := h.Users.SetPasswordHash(ctx, u.ID, hash); err != nil {
				h.Log.Warn("rehash legacy password", zap.Uint64("user_id", u.ID), zap.Error(err))
			}
		}
	}

	resp, err := h.startSession(c, ctx, u)
	if err != nil {
		return serverError(c, h.Log, "create session failed", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh rotates the refresh token from the cookie and issues a new
// access token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ck, err := c.Cookie(RefreshCookie)
	if err != nil || strings.TrimSpace(ck.Value) == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(ck.Value))

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	userID, err := h.Sessions.Validate(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrSessionInvalid) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return serverError(c, h.Log, "validate session failed", err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return serverError(c, h.Log, "load user failed", err)
	}
	if err := h.Sessions.Revoke(ctx, hash); err != nil {
		return serverError(c, h.Log, "revoke session failed", err)
	}

	resp, err := h.startSession(c, ctx, u)
	if err != nil {
		return serverError(c, h.Log, "create session failed", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the session named by the refresh cookie, if any, and
// clears both cookies. It succeeds even without a session.
func (h *AuthHandler) Logout(c echo.Context) error {
	if ck, err := c.Cookie(RefreshCookie); err == nil && ck.Value != "" {
		ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
		defer cancel()
		if err := h.Sessions.Revoke(ctx, utils.HashRefreshRaw(ck.Value)); err != nil {
			return serverError(c, h.Log, "logout failed", err)
		}
	}
	h.clearCookies(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// User returns the signed-in account.
func (h *AuthHandler) User(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return serverError(c, h.Log, "load user failed", err)
	}
	return c.JSON(http.StatusOK, u)
}

// startSession issues an access token and a stored refresh token and sets
// both cookies.
func (h *AuthHandler) startSession(c echo.Context, ctx context.Context, u *model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role(), h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Sessions.Create(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}

	c.SetCookie(h.cookie(middleware.AccessCookie, access.Token, "/", access.Exp))
	c.SetCookie(h.cookie(RefreshCookie, refresh.Raw, "/api", refresh.Exp))
	return authResp{User: u, Access: tokenPart{Token: access.Token, Expires: access.Exp}}, nil
}

func (h *AuthHandler) clearCookies(c echo.Context) {
	for _, ck := range []*http.Cookie{
		h.cookie(middleware.AccessCookie, "", "/", time.Unix(0, 0)),
		h.cookie(RefreshCookie, "", "/api", time.Unix(0, 0)),
	} {
		ck.MaxAge = -1
		c.SetCookie(ck)
	}
}

func (h *AuthHandler) cookie(name, value, path string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
