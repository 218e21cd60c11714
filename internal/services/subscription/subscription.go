// Package subscription содержит машину состояний подписки.
//
// Каждый переход выражен условным UPDATE в хранилище: предикат текущего
// состояния входит в сам запрос, поэтому из гонящихся вызовов побеждает
// ровно один, а проигравший получает ноль затронутых строк и завершает
// переход как no-op, не как ошибку.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/apperr"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/entitlement"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// paidPeriod длительность оплаченного периода после подтверждения платежа.
const paidPeriod = 30 * 24 * time.Hour

// Repository определяет методы хранилища, нужные машине состояний.
type Repository interface {
	GetSubscriptionByUser(ctx context.Context, userUID string) (*models.Subscription, error)
	ConfirmPayment(ctx context.Context, userUID string, periodStart, periodEnd time.Time) (int, error)
	ExpireTrial(ctx context.Context, subID int64, freePlanUID string, now time.Time) (int, error)
	DowngradeSubscription(ctx context.Context, subID int64, freePlanUID string, now time.Time) (int, error)
	CancelSubscription(ctx context.Context, subID int64) (int, error)
	ExtendTrial(ctx context.Context, subID int64, days int) (int, error)
	GetFreePlan(ctx context.Context) (*models.Plan, error)
	GetInvoiceByID(ctx context.Context, invoiceID int64) (*models.Invoice, error)
	MarkInvoicePaid(ctx context.Context, invoiceID int64, now time.Time) (int, error)
}

// Service реализует переходы статуса подписки.
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

// ConfirmPayment обрабатывает подтверждение платежа. Шлюз сообщает только
// order_id — ID счёта, выставленного при инициализации; владелец подписки
// восстанавливается по счёту. Подписка переводится в active с периодом на
// 30 дней, счёт помечается оплаченным. Отменённая подписка платёж не принимает.
func (s *Service) ConfirmPayment(ctx context.Context, invoiceID int64) error {
	invoice, err := s.repo.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("find invoice: %w", err)
	}
	if invoice == nil {
		return apperr.Wrap(apperr.ErrNotFound, "invoice not found")
	}

	now := time.Now().UTC()
	count, err := s.repo.ConfirmPayment(ctx, invoice.UserUID, now, now.Add(paidPeriod))
	if err != nil {
		return fmt.Errorf("confirm payment: %w", err)
	}
	if count == 0 {
		return apperr.Wrap(apperr.ErrNotFound, "no active subscription for user")
	}
	s.log.Info("payment confirmed, subscription activated",
		slog.Int64("invoice_id", invoice.ID),
		slog.String("user_uid", invoice.UserUID))

	if _, err := s.repo.MarkInvoicePaid(ctx, invoice.ID, now); err != nil {
		return fmt.Errorf("mark invoice paid: %w", err)
	}
	return nil
}

// ExpireTrial переводит подписку с истёкшим пробным периодом на бесплатный
// тариф. Возвращает true, если переход состоялся; false означает, что
// подписка уже переведена (или пробный период ещё не истёк) — это не ошибка.
func (s *Service) ExpireTrial(ctx context.Context, subID int64) (bool, error) {
	freePlan, err := s.repo.GetFreePlan(ctx)
	if err != nil {
		return false, fmt.Errorf("resolve free plan: %w", err)
	}
	if err := entitlement.ValidatePlan(freePlan); err != nil {
		return false, fmt.Errorf("validate free plan: %w", err)
	}

	count, err := s.repo.ExpireTrial(ctx, subID, freePlan.UID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("expire trial: %w", err)
	}
	if count == 0 {
		return false, nil
	}
	s.log.Info("trial expired, subscription downgraded to free plan",
		slog.Int64("subscription_id", subID))
	return true, nil
}

// Downgrade переводит подписку на бесплатный тариф по ручной команде администратора.
func (s *Service) Downgrade(ctx context.Context, subID int64) error {
	freePlan, err := s.repo.GetFreePlan(ctx)
	if err != nil {
		return fmt.Errorf("resolve free plan: %w", err)
	}
	count, err := s.repo.DowngradeSubscription(ctx, subID, freePlan.UID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("downgrade: %w", err)
	}
	if count == 0 {
		s.log.Info("downgrade was a no-op", slog.Int64("subscription_id", subID))
	}
	return nil
}

// Cancel отменяет подписку.
func (s *Service) Cancel(ctx context.Context, subID int64) error {
	count, err := s.repo.CancelSubscription(ctx, subID)
	if err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	if count == 0 {
		s.log.Info("cancel was a no-op", slog.Int64("subscription_id", subID))
	}
	return nil
}

// ExtendTrial продлевает пробный период на days дней по команде администратора.
func (s *Service) ExtendTrial(ctx context.Context, subID int64, days int) error {
	if days <= 0 {
		return apperr.Wrap(apperr.ErrValidation, "days must be positive")
	}
	count, err := s.repo.ExtendTrial(ctx, subID, days)
	if err != nil {
		return fmt.Errorf("extend trial: %w", err)
	}
	if count == 0 {
		return apperr.Wrap(apperr.ErrNotFound, "subscription has no active trial")
	}
	s.log.Info("trial extended",
		slog.Int64("subscription_id", subID), slog.Int("days", days))
	return nil
}

// Snapshot возвращает свежий снимок подписки пользователя для проверок доступа.
// Отсутствие подписки не ошибка: возвращается nil.
func (s *Service) Snapshot(ctx context.Context, userUID string) (*models.Subscription, error) {
	sub, err := s.repo.GetSubscriptionByUser(ctx, userUID)
	if err != nil {
		s.log.Error("failed to load subscription snapshot", sl.Err(err))
		return nil, err
	}
	return sub, nil
}
