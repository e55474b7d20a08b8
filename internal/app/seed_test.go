package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jellyjess/nail-salon/internal/model"
	"github.com/jellyjess/nail-salon/internal/repository"
)

type mockUsers struct{ mock.Mock }

func (m *mockUsers) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUsers) Create(ctx context.Context, u *model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUsers) SetAdmin(ctx context.Context, id uint64, isAdmin bool) error {
	return m.Called(ctx, id, isAdmin).Error(0)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	t.Run("not configured", func(t *testing.T) {
		users := new(mockUsers)
		require.NoError(t, ensureAdmin(ctx, users, "", "", "", bcrypt.MinCost, log))
		users.AssertExpectations(t)
	})

	t.Run("creates missing admin", func(t *testing.T) {
		users := new(mockUsers)
		users.On("GetByUsername", ctx, "jess").Return(nil, repository.ErrUserNotFound)
		users.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
			return u.Username == "jess" && u.IsAdmin && u.EmailVerified && u.Email != nil && *u.Email == "jess@example.com" &&
				bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret")) == nil
		})).Return(nil)

		require.NoError(t, ensureAdmin(ctx, users, "jess", "s3cret", "jess@example.com", bcrypt.MinCost, log))
		users.AssertExpectations(t)
	})

	t.Run("promotes existing user", func(t *testing.T) {
		users := new(mockUsers)
		users.On("GetByUsername", ctx, "jess").Return(&model.User{ID: 4, Username: "jess"}, nil)
		users.On("SetAdmin", ctx, uint64(4), true).Return(nil)

		require.NoError(t, ensureAdmin(ctx, users, "jess", "s3cret", "", bcrypt.MinCost, log))
		users.AssertExpectations(t)
	})

	t.Run("existing admin untouched", func(t *testing.T) {
		users := new(mockUsers)
		users.On("GetByUsername", ctx, "jess").Return(&model.User{ID: 4, Username: "jess", IsAdmin: true}, nil)

		require.NoError(t, ensureAdmin(ctx, users, "jess", "s3cret", "", bcrypt.MinCost, log))
		users.AssertNotCalled(t, "SetAdmin", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("lookup error", func(t *testing.T) {
		users := new(mockUsers)
		users.On("GetByUsername", ctx, "jess").Return(nil, errors.New("db down"))

		err := ensureAdmin(ctx, users, "jess", "s3cret", "", bcrypt.MinCost, log)
		assert.ErrorContains(t, err, "load admin")
	})
}
