package handler

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jellyjess/nail-salon/internal/model"
	"github.com/jellyjess/nail-salon/internal/oauth"
	"github.com/jellyjess/nail-salon/internal/repository"
	"github.com/jellyjess/nail-salon/internal/utils"
)

const stateCookie = "oauth_state"

var usernameJunk = regexp.MustCompile(`[^a-z0-9_]+`)

// GoogleStart redirects the browser to Google's consent page. The state
// value is kept in a short-lived cookie and checked on the way back.
func (h *AuthHandler) GoogleStart(c echo.Context) error {
	if h.Google == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "google sign-in not configured"})
	}
	state, err := utils.RandomHex(16)
	if err != nil {
		return serverError(c, h.Log, "oauth state failed", err)
	}
	c.SetCookie(&http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, h.Google.AuthCodeURL(state))
}

// GoogleCallback finishes the OAuth flow: it resolves the Google profile,
// finds or creates the matching account and starts a session.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	if h.Google == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "google sign-in not configured"})
	}
	ck, err := c.Cookie(stateCookie)
	if err != nil || ck.Value == "" || ck.Value != c.QueryParam("state") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid oauth state"})
	}
	c.SetCookie(&http.Cookie{Name: stateCookie, Value: "", Path: "/api/auth/google", MaxAge: -1, Expires: time.Unix(0, 0)})

	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing code"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	profile, err := h.Google.ResolveProfile(ctx, code)
	if err != nil {
		h.Log.Warn("google profile lookup failed", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "google sign-in failed"})
	}
	u, err := h.googleUser(ctx, profile)
	if err != nil {
		return serverError(c, h.Log, "google sign-in failed", err)
	}
	if _, err := h.startSession(c, ctx, u); err != nil {
		return serverError(c, h.Log, "create session failed", err)
	}
	return c.Redirect(http.StatusFound, h.Cfg.PublicURL)
}

// googleUser links a profile to an account: first by Google ID, then by
// a verified email, otherwise a new account is created. Self-registered
// addresses are never trusted for linking. The configured admin email is
// promoted when the Google identity is already known or newly created.
func (h *AuthHandler) googleUser(ctx context.Context, p oauth.Profile) (*model.User, error) {
	promote := h.Cfg.Admin.Email != "" && strings.EqualFold(p.Email, h.Cfg.Admin.Email)

	u, err := h.Users.GetByGoogleID(ctx, p.ExternalID)
	switch {
	case err == nil:
		if promote && !u.IsAdmin {
			if err := h.Users.SetAdmin(ctx, u.ID, true); err != nil {
				return nil, err
			}
			u.IsAdmin = true
		}
		return u, nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, err
	}

	if p.Email != "" {
		u, err := h.Users.GetByVerifiedEmail(ctx, p.Email)
		switch {
		case err == nil:
			if err := h.Users.LinkGoogle(ctx, u.ID, p.ExternalID); err != nil {
				return nil, err
			}
			h.Log.Info("linked google account", zap.Uint64("user_id", u.ID))
			googleID := p.ExternalID
			u.GoogleID = &googleID
			return u, nil
		case !errors.Is(err, repository.ErrUserNotFound):
			return nil, err
		}
	}

	secret, err := utils.RandomHex(32)
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(secret, h.Cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	googleID := p.ExternalID
	nu := &model.User{PasswordHash: hash, IsAdmin: promote, GoogleID: &googleID}
	if p.Email != "" {
		email := p.Email
		nu.Email = &email
		nu.EmailVerified = true
	}
	base := usernameBase(p)
	for attempt := 0; attempt < 3; attempt++ {
		suffix, err := utils.RandomHex(3)
		if err != nil {
			return nil, err
		}
		nu.Username = base + "_" + suffix
		err = h.Users.Create(ctx, nu)
		if err == nil {
			h.Log.Info("created google account", zap.Uint64("user_id", nu.ID), zap.Bool("admin", promote))
			return nu, nil
		}
		if !errors.Is(err, repository.ErrUsernameExists) {
			return nil, err
		}
	}
	return nil, repository.ErrUsernameExists
}

// usernameBase derives a readable username from the profile.
func usernameBase(p oauth.Profile) string {
	name := p.DisplayName
	if local, _, ok := strings.Cut(p.Email, "@"); ok && local != "" {
		name = local
	}
	name = usernameJunk.ReplaceAllString(strings.ToLower(strings.ReplaceAll(name, " ", "_")), "")
	if len(name) > 40 {
		name = name[:40]
	}
	if name == "" {
		name = "google"
	}
	return name
}
