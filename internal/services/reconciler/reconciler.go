// Package reconciler содержит фоновую сверку пробных периодов: перевод
// истёкших триалов на бесплатный тариф и предупреждение о скором окончании.
//
// Оба прохода идемпотентны по построению: переход охраняется предикатом
// is_trial_active, предупреждение — флагом trial_notification_sent, поэтому
// запуск на двух каденциях (час и сутки) безопасен без блокировок. Сбой
// одной строки логируется и не прерывает обход остальных.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// endingSoonWindow окно предупреждения о скором окончании пробного периода.
const endingSoonWindow = 24 * time.Hour

// Repository определяет методы хранилища для сверки пробных периодов.
type Repository interface {
	FindExpiredTrials(ctx context.Context, now time.Time) ([]*models.Subscription, error)
	FindTrialsEndingSoon(ctx context.Context, now time.Time, window time.Duration) ([]*models.Subscription, error)
	MarkTrialNotificationSent(ctx context.Context, subID int64) (int, error)
	CreateTrialNotification(ctx context.Context, n models.TrialNotification) (int64, error)
}

// StateMachine описывает единственный нужный сверке переход.
type StateMachine interface {
	ExpireTrial(ctx context.Context, subID int64) (bool, error)
}

// Publisher публикует уведомление во внешнюю очередь доставки.
type Publisher interface {
	Publish(exchange, routingKey string, message any) error
}

// Service реализует сверку пробных периодов.
type Service struct {
	repo      Repository
	machine   StateMachine
	publisher Publisher
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, machine StateMachine, publisher Publisher, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		machine:   machine,
		publisher: publisher,
		log:       log,
	}
}

// RunExpiredSweep обходит подписки с истёкшим пробным периодом и применяет
// переход. Уведомление trial_expired создаётся только для строк, где переход
// реально состоялся, — так повторный прогон не плодит дубликатов.
// Возвращает число переведённых подписок.
func (s *Service) RunExpiredSweep(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	subs, err := s.repo.FindExpiredTrials(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find expired trials: %w", err)
	}
	if len(subs) == 0 {
		s.log.Info("no expired trials found")
		return 0, nil
	}
	s.log.Info("found expired trials", slog.Int("count", len(subs)))

	processed := 0
	for _, sub := range subs {
		transitioned, err := s.machine.ExpireTrial(ctx, sub.ID)
		if err != nil {
			s.log.Error("failed to expire trial", slog.Int64("subscription_id", sub.ID), sl.Err(err))
			continue
		}
		if !transitioned {
			// Проиграли гонку другому прогону или платежу, строка уже обработана.
			continue
		}
		if err := s.notify(ctx, sub, models.NotificationTrialExpired,
			"Your trial has ended. Your account was moved to the Free plan."); err != nil {
			s.log.Error("failed to create trial_expired notification",
				slog.Int64("subscription_id", sub.ID), sl.Err(err))
			continue
		}
		processed++
	}
	return processed, nil
}

// RunEndingSoonSweep предупреждает о пробных периодах, истекающих в ближайшие
// сутки. Дедупликация — флаг trial_notification_sent: уведомление создаётся
// только если именно этот прогон успел поднять флаг.
// Возвращает число отправленных предупреждений.
func (s *Service) RunEndingSoonSweep(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	subs, err := s.repo.FindTrialsEndingSoon(ctx, now, endingSoonWindow)
	if err != nil {
		return 0, fmt.Errorf("find trials ending soon: %w", err)
	}
	if len(subs) == 0 {
		s.log.Info("no trials ending soon")
		return 0, nil
	}
	s.log.Info("found trials ending soon", slog.Int("count", len(subs)))

	processed := 0
	for _, sub := range subs {
		count, err := s.repo.MarkTrialNotificationSent(ctx, sub.ID)
		if err != nil {
			s.log.Error("failed to mark notification flag",
				slog.Int64("subscription_id", sub.ID), sl.Err(err))
			continue
		}
		if count == 0 {
			continue
		}
		if err := s.notify(ctx, sub, models.NotificationTrialEnding,
			"Your trial ends within 24 hours. Add a payment method to keep your plan."); err != nil {
			s.log.Error("failed to create trial_ending notification",
				slog.Int64("subscription_id", sub.ID), sl.Err(err))
			continue
		}
		processed++
	}
	return processed, nil
}

func (s *Service) notify(ctx context.Context, sub *models.Subscription, kind, message string) error {
	notification := models.TrialNotification{
		UserUID:        sub.UserUID,
		SubscriptionID: sub.ID,
		Type:           kind,
		Message:        message,
	}
	if _, err := s.repo.CreateTrialNotification(ctx, notification); err != nil {
		return err
	}
	// Доставка наружу best-effort: запись в базе уже есть.
	if err := s.publisher.Publish("notifications", kind, notification); err != nil {
		s.log.Error("failed to publish notification", sl.Err(err))
	}
	return nil
}
