package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// GetInvoiceByID возвращает счёт по ID. Отсутствие строки не ошибка:
// коллбэк шлюза с неизвестным order_id возвращает nil.
func (s *Storage) GetInvoiceByID(ctx context.Context, invoiceID int64) (*models.Invoice, error) {
	const op = "storage.GetInvoiceByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, subscription_id, amount, currency, status, created_at, paid_at
			  FROM invoices
			  WHERE id = $1`
	var inv models.Invoice
	var paidAt sql.NullTime
	err := s.DB.QueryRowContext(ctx, query, invoiceID).Scan(
		&inv.ID, &inv.UserUID, &inv.SubscriptionID, &inv.Amount, &inv.Currency,
		&inv.Status, &inv.CreatedAt, &paidAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if paidAt.Valid {
		inv.PaidAt = &paidAt.Time
	}
	return &inv, nil
}

// MarkInvoicePaid помечает счёт оплаченным. Предикат status = 'unpaid'
// делает повторную доставку вебхука безопасной.
func (s *Storage) MarkInvoicePaid(ctx context.Context, invoiceID int64, now time.Time) (int, error) {
	const op = "storage.MarkInvoicePaid"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE invoices
			  SET status = 'paid', paid_at = $1
			  WHERE id = $2 AND status = 'unpaid'`
	result, err := s.DB.ExecContext(ctx, query, now, invoiceID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
