package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jellyjess/nail-salon/internal/model"
	"github.com/jellyjess/nail-salon/internal/repository"
	"github.com/jellyjess/nail-salon/internal/utils"
)

// seedAdmin makes sure the configured admin account exists. An existing
// account keeps its password and only gains the admin flag.
func (a *App) seedAdmin(ctx context.Context) error {
	return ensureAdmin(ctx, a.users, a.Cfg.Admin.Username, a.Cfg.Admin.Password, a.Cfg.Admin.Email, a.Cfg.BcryptCost, a.Log)
}

type adminStore interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
	SetAdmin(ctx context.Context, id uint64, isAdmin bool) error
}

func ensureAdmin(ctx context.Context, users adminStore, username, password, email string, cost int, log *zap.Logger) error {
	if username == "" || password == "" {
		return nil
	}
	u, err := users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if u.IsAdmin {
			return nil
		}
		if err := users.SetAdmin(ctx, u.ID, true); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		log.Info("promoted existing user to admin", zap.String("username", username))
		return nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return fmt.Errorf("load admin: %w", err)
	}

	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	nu := &model.User{Username: username, PasswordHash: hash, IsAdmin: true}
	if email != "" {
		nu.Email = &email
		nu.EmailVerified = true
	}
	if err := users.Create(ctx, nu); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Info("created admin user", zap.String("username", username))
	return nil
}
