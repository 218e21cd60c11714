package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// CreateTrialNotification вставляет новое уведомление о пробном периоде
// и возвращает его ID.
func (s *Storage) CreateTrialNotification(ctx context.Context, n models.TrialNotification) (int64, error) {
	const op = "storage.CreateTrialNotification"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO trial_notifications (user_uid, subscription_id, type, message, sent_at)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	var newID int64
	err := s.DB.QueryRowContext(ctx, query,
		n.UserUID, n.SubscriptionID, n.Type, n.Message, time.Now().UTC()).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListTrialNotifications возвращает уведомления пользователя с пагинацией.
func (s *Storage) ListTrialNotifications(ctx context.Context, userUID string, limit, offset int) ([]*models.TrialNotification, error) {
	const op = "storage.ListTrialNotifications"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, subscription_id, type, message, is_read, sent_at
			  FROM trial_notifications
			  WHERE user_uid = $1
			  ORDER BY id DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.TrialNotification
	for rows.Next() {
		var item models.TrialNotification
		if err := rows.Scan(&item.ID, &item.UserUID, &item.SubscriptionID, &item.Type,
			&item.Message, &item.IsRead, &item.SentAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkNotificationRead отмечает уведомление прочитанным. Единственная
// разрешённая мутация для append-only таблицы уведомлений.
func (s *Storage) MarkNotificationRead(ctx context.Context, id int64, userUID string) (int, error) {
	const op = "storage.MarkNotificationRead"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE trial_notifications
			  SET is_read = TRUE
			  WHERE id = $1 AND user_uid = $2 AND NOT is_read`
	result, err := s.DB.ExecContext(ctx, query, id, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// CountTrialExpiredNotifications возвращает число уведомлений trial_expired
// по подписке. Уведомление создаётся только победителем охраняемого
// перехода, поэтому счётчик никогда не превышает единицу.
func (s *Storage) CountTrialExpiredNotifications(ctx context.Context, subID int64) (int, error) {
	const op = "storage.CountTrialExpiredNotifications"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM trial_notifications
			  WHERE subscription_id = $1 AND type = 'trial_expired'`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, subID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
