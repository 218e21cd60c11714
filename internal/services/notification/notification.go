// Package notification реализует чтение ленты уведомлений пользователя.
// Создание уведомлений остаётся за фоновой сверкой пробных периодов.
package notification

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/apperr"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// Repository определяет методы хранилища для ленты уведомлений.
type Repository interface {
	ListTrialNotifications(ctx context.Context, userUID string, limit, offset int) ([]*models.TrialNotification, error)
	MarkNotificationRead(ctx context.Context, id int64, userUID string) (int, error)
}

// Service реализует ленту уведомлений.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// List возвращает уведомления пользователя, новые первыми.
func (s *Service) List(ctx context.Context, userUID string, limit, offset int) ([]*models.TrialNotification, error) {
	return s.repo.ListTrialNotifications(ctx, userUID, limit, offset)
}

// MarkRead помечает уведомление прочитанным. Чужое или несуществующее
// уведомление даёт ноль затронутых строк.
func (s *Service) MarkRead(ctx context.Context, id int64, userUID string) error {
	count, err := s.repo.MarkNotificationRead(ctx, id, userUID)
	if err != nil {
		return err
	}
	if count == 0 {
		return apperr.Wrap(apperr.ErrNotFound, "notification not found")
	}
	return nil
}
