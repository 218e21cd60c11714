package notification

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/apperr"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// MockRepository реализует интерфейс notification.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListTrialNotifications(ctx context.Context, userUID string, limit, offset int) ([]*models.TrialNotification, error) {
	args := m.Called(ctx, userUID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TrialNotification), args.Error(1)
}

func (m *MockRepository) MarkNotificationRead(ctx context.Context, id int64, userUID string) (int, error) {
	args := m.Called(ctx, id, userUID)
	return args.Int(0), args.Error(1)
}

func newTestService(repo Repository) *Service {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(repo, logger)
}

func TestList(t *testing.T) {
	repo := new(MockRepository)
	expected := []*models.TrialNotification{
		{ID: 2, UserUID: "user-uid-1", Type: models.NotificationTrialEnding},
		{ID: 1, UserUID: "user-uid-1", Type: models.NotificationTrialExpired},
	}
	repo.On("ListTrialNotifications", mock.Anything, "user-uid-1", 20, 0).Return(expected, nil)

	svc := newTestService(repo)
	got, err := svc.List(context.Background(), "user-uid-1", 20, 0)

	assert.NoError(t, err)
	assert.Equal(t, expected, got)
}

func TestMarkRead(t *testing.T) {
	t.Run("уведомление помечается прочитанным", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("MarkNotificationRead", mock.Anything, int64(5), "user-uid-1").Return(1, nil)

		svc := newTestService(repo)
		err := svc.MarkRead(context.Background(), 5, "user-uid-1")

		assert.NoError(t, err)
	})

	t.Run("чужое уведомление отвечает not found", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("MarkNotificationRead", mock.Anything, int64(5), "stranger-uid").Return(0, nil)

		svc := newTestService(repo)
		err := svc.MarkRead(context.Background(), 5, "stranger-uid")

		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}
