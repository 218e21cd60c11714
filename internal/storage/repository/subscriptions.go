package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

const subscriptionColumns = `id, user_uid, plan_uid, status, is_trial_active, trial_start,
			      trial_end, current_period_start, current_period_end,
			      trial_notification_sent, cancel_at_period_end, downgraded_at`

func scanSubscription(scan func(dest ...any) error) (*models.Subscription, error) {
	var sub models.Subscription
	var trialStart, trialEnd, periodStart, periodEnd, downgradedAt sql.NullTime
	if err := scan(&sub.ID, &sub.UserUID, &sub.PlanUID, &sub.Status, &sub.IsTrialActive,
		&trialStart, &trialEnd, &periodStart, &periodEnd,
		&sub.TrialNotificationSent, &sub.CancelAtPeriodEnd, &downgradedAt); err != nil {
		return nil, err
	}
	if trialStart.Valid {
		sub.TrialStart = &trialStart.Time
	}
	if trialEnd.Valid {
		sub.TrialEnd = &trialEnd.Time
	}
	if periodStart.Valid {
		sub.CurrentPeriodStart = &periodStart.Time
	}
	if periodEnd.Valid {
		sub.CurrentPeriodEnd = &periodEnd.Time
	}
	if downgradedAt.Valid {
		sub.DowngradedAt = &downgradedAt.Time
	}
	return &sub, nil
}

// GetSubscriptionByUser возвращает единственную не-отменённую подписку пользователя.
// Отсутствие строки не ошибка для вызывающего кода доступов: возвращается nil.
func (s *Storage) GetSubscriptionByUser(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_uid = $1 AND status <> 'canceled'`
	row := s.DB.QueryRowContext(ctx, query, userUID)
	sub, err := scanSubscription(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// ConfirmPayment переводит не-отменённую подписку пользователя в active,
// открывает оплаченный период и гасит поля пробного периода одним UPDATE,
// чтобы статус и trial-поля не могли разойтись.
// Возвращает количество затронутых строк: ноль означает, что подписки нет
// либо она отменена.
func (s *Storage) ConfirmPayment(ctx context.Context, userUID string, periodStart, periodEnd time.Time) (int, error) {
	const op = "storage.ConfirmPayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = 'active', current_period_start = $1, current_period_end = $2,
			      is_trial_active = FALSE, trial_end = NULL
			  WHERE user_uid = $3 AND status <> 'canceled'`
	result, err := s.DB.ExecContext(ctx, query, periodStart, periodEnd, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ExpireTrial переводит подписку с истёкшим пробным периодом на бесплатный тариф.
// Предикат is_trial_active делает повторное применение no-op: второй вызов
// по уже переведённой подписке затрагивает ноль строк.
func (s *Storage) ExpireTrial(ctx context.Context, subID int64, freePlanUID string, now time.Time) (int, error) {
	const op = "storage.ExpireTrial"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = 'active', plan_uid = $1, is_trial_active = FALSE,
			      trial_start = NULL, trial_end = NULL, downgraded_at = $2
			  WHERE id = $3 AND is_trial_active AND trial_end <= $2`
	result, err := s.DB.ExecContext(ctx, query, freePlanUID, now, subID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// DowngradeSubscription переводит подписку на бесплатный тариф по ручной команде.
func (s *Storage) DowngradeSubscription(ctx context.Context, subID int64, freePlanUID string, now time.Time) (int, error) {
	const op = "storage.DowngradeSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = 'active', plan_uid = $1, is_trial_active = FALSE,
			      trial_start = NULL, trial_end = NULL, downgraded_at = $2
			  WHERE id = $3 AND status <> 'canceled' AND plan_uid <> $1`
	result, err := s.DB.ExecContext(ctx, query, freePlanUID, now, subID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// CancelSubscription отменяет подписку. Запись остаётся в базе.
func (s *Storage) CancelSubscription(ctx context.Context, subID int64) (int, error) {
	const op = "storage.CancelSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = 'canceled', is_trial_active = FALSE, trial_end = NULL
			  WHERE id = $1 AND status <> 'canceled'`
	result, err := s.DB.ExecContext(ctx, query, subID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ExtendTrial продлевает активный пробный период на days дней и сбрасывает
// флаг отправленного уведомления, чтобы новое окно "скоро закончится"
// отработало заново.
func (s *Storage) ExtendTrial(ctx context.Context, subID int64, days int) (int, error) {
	const op = "storage.ExtendTrial"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET trial_end = trial_end + make_interval(days => $1),
			      trial_notification_sent = FALSE
			  WHERE id = $2 AND is_trial_active`
	result, err := s.DB.ExecContext(ctx, query, days, subID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// FindExpiredTrials возвращает подписки, чей пробный период уже истёк.
func (s *Storage) FindExpiredTrials(ctx context.Context, now time.Time) ([]*models.Subscription, error) {
	const op = "storage.FindExpiredTrials"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE is_trial_active AND trial_end <= $1
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindTrialsEndingSoon возвращает подписки, чей пробный период закончится
// в пределах window и по которым уведомление ещё не отправлялось.
func (s *Storage) FindTrialsEndingSoon(ctx context.Context, now time.Time, window time.Duration) ([]*models.Subscription, error) {
	const op = "storage.FindTrialsEndingSoon"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE is_trial_active AND NOT trial_notification_sent
			    AND trial_end > $1 AND trial_end <= $2
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, now, now.Add(window))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkTrialNotificationSent поднимает флаг-предохранитель отправки уведомления.
// Ноль затронутых строк означает, что другой прогон успел раньше.
func (s *Storage) MarkTrialNotificationSent(ctx context.Context, subID int64) (int, error) {
	const op = "storage.MarkTrialNotificationSent"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET trial_notification_sent = TRUE
			  WHERE id = $1 AND is_trial_active AND NOT trial_notification_sent`
	result, err := s.DB.ExecContext(ctx, query, subID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
