package auth

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/apperr"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/jwt"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/password"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// MockRepository реализует интерфейс auth.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newTestService(repo Repository) *Service {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	return New(repo, maker, logger)
}

func TestLogin(t *testing.T) {
	hash, err := password.GetHash("correct-password")
	assert.NoError(t, err)

	user := &models.User{
		UID:          "user-uid-1",
		Username:     "owner",
		PasswordHash: hash,
		Role:         "user",
	}

	t.Run("верный пароль возвращает подписанный токен", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetUserByUsername", mock.Anything, "owner").Return(user, nil)

		svc := newTestService(repo)
		token, err := svc.Login(context.Background(), "owner", "correct-password")

		assert.NoError(t, err)
		assert.NotEmpty(t, token)

		maker := jwt.NewJWTMaker("test-secret", time.Hour)
		claims, err := maker.ParseToken(token)
		assert.NoError(t, err)
		assert.Equal(t, "owner", claims.Username)
		assert.Equal(t, "user-uid-1", claims.UserUID)
	})

	t.Run("неизвестный логин и неверный пароль неразличимы", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetUserByUsername", mock.Anything, "ghost").Return(nil, nil)
		repo.On("GetUserByUsername", mock.Anything, "owner").Return(user, nil)

		svc := newTestService(repo)

		_, errUnknown := svc.Login(context.Background(), "ghost", "whatever")
		_, errWrongPass := svc.Login(context.Background(), "owner", "wrong-password")

		assert.ErrorIs(t, errUnknown, apperr.ErrNotFound)
		assert.ErrorIs(t, errWrongPass, apperr.ErrNotFound)
		assert.Equal(t, errUnknown.Error(), errWrongPass.Error())
	})

	t.Run("ошибка хранилища пробрасывается", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetUserByUsername", mock.Anything, "owner").Return(nil, assert.AnError)

		svc := newTestService(repo)
		_, err := svc.Login(context.Background(), "owner", "correct-password")

		assert.ErrorIs(t, err, assert.AnError)
	})
}
