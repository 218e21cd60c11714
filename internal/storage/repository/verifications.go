package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// CreateVerification удаляет прежние неподтверждённые записи по телефону
// и вставляет новую. Одна транзакция: у номера в каждый момент времени
// не больше одного живого кода.
func (s *Storage) CreateVerification(ctx context.Context, v models.PhoneVerification) (int64, error) {
	const op = "storage.CreateVerification"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM phone_verifications WHERE phone = $1 AND NOT verified`, v.Phone); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var newID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO phone_verifications (phone, otp_code, expires_at)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		v.Phone, v.OTPCode, v.ExpiresAt).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetActiveVerification возвращает последнюю неподтверждённую запись по телефону.
func (s *Storage) GetActiveVerification(ctx context.Context, phone string) (*models.PhoneVerification, error) {
	const op = "storage.GetActiveVerification"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, phone, otp_code, expires_at, attempts, verified
			  FROM phone_verifications
			  WHERE phone = $1 AND NOT verified
			  ORDER BY id DESC
			  LIMIT 1`
	var v models.PhoneVerification
	err := s.DB.QueryRowContext(ctx, query, phone).Scan(
		&v.ID, &v.Phone, &v.OTPCode, &v.ExpiresAt, &v.Attempts, &v.Verified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &v, nil
}

// MarkVerified подтверждает запись при совпадении кода, не истёкшем сроке
// и не исчерпанных попытках. Ноль затронутых строк — проверка не прошла.
func (s *Storage) MarkVerified(ctx context.Context, id int64, code string) (int, error) {
	const op = "storage.MarkVerified"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE phone_verifications
			  SET verified = TRUE
			  WHERE id = $1 AND otp_code = $2 AND expires_at > now()
			    AND attempts < 3 AND NOT verified`
	result, err := s.DB.ExecContext(ctx, query, id, code)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// IncrementAttempts увеличивает счётчик неудачных проверок.
// Предикат attempts < 3 удерживает счётчик в пределах инварианта.
func (s *Storage) IncrementAttempts(ctx context.Context, id int64) (int, error) {
	const op = "storage.IncrementAttempts"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE phone_verifications
			  SET attempts = attempts + 1
			  WHERE id = $1 AND attempts < 3 AND NOT verified`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// HasVerifiedPhone сообщает, есть ли подтверждённая запись по телефону.
// Используется финальным шагом регистрации как обязательное условие.
func (s *Storage) HasVerifiedPhone(ctx context.Context, phone string) (bool, error) {
	const op = "storage.HasVerifiedPhone"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	query := `SELECT EXISTS (
			  SELECT 1 FROM phone_verifications WHERE phone = $1 AND verified)`
	if err := s.DB.QueryRowContext(ctx, query, phone).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}
