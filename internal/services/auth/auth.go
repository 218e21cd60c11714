// Package auth реализует вход по паролю и выпуск JWT токенов.
package auth

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/apperr"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/jwt"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/password"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// Repository определяет методы хранилища для аутентификации.
type Repository interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service реализует аутентификацию пользователей.
type Service struct {
	repo  Repository
	maker jwt.Maker
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, maker jwt.Maker, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		maker: maker,
		log:   log,
	}
}

// Login проверяет пару логин-пароль и возвращает подписанный JWT.
// Неизвестный логин и неверный пароль неразличимы для клиента.
func (s *Service) Login(ctx context.Context, username, pass string) (string, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", apperr.Wrap(apperr.ErrNotFound, "invalid username or password")
	}
	if err := password.CompareHash(user.PasswordHash, pass); err != nil {
		return "", apperr.Wrap(apperr.ErrNotFound, "invalid username or password")
	}

	token, err := s.maker.GenerateToken(user.Username, user.Role, user.UID)
	if err != nil {
		s.log.Error("failed to sign token", sl.Err(err))
		return "", err
	}
	return token, nil
}
