package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// RegistrationBundle данные, создаваемые финальным шагом регистрации
// одной транзакцией: пользователь, бренд, членство владельца, подписка
// и (для платного тарифа) неоплаченный счёт.
type RegistrationBundle struct {
	User         models.User
	Brand        models.Brand
	Subscription models.Subscription
	Invoice      *models.Invoice
}

// CreateRegistrationBundle выполняет атомарное создание всего набора.
// Любая ошибка откатывает транзакцию целиком: частично созданных
// пользователей, брендов или подписок не остаётся.
func (s *Storage) CreateRegistrationBundle(ctx context.Context, b RegistrationBundle) (*RegistrationBundle, error) {
	const op = "storage.CreateRegistrationBundle"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (uid, email, username, password_hash, role, phone)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		b.User.UID, b.User.Email, b.User.Username, b.User.PasswordHash,
		b.User.Role, b.User.Phone).Scan(&b.User.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO brands (uid, name, owner_uid)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`,
		b.Brand.UID, b.Brand.Name, b.User.UID).Scan(&b.Brand.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	b.Brand.OwnerUID = b.User.UID

	_, err = tx.ExecContext(ctx,
		`INSERT INTO brand_members (brand_uid, user_uid, role)
		 VALUES ($1, $2, 'owner')`,
		b.Brand.UID, b.User.UID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	b.Subscription.UserUID = b.User.UID
	err = tx.QueryRowContext(ctx,
		`INSERT INTO subscriptions (user_uid, plan_uid, status, is_trial_active,
		     trial_start, trial_end, current_period_start, current_period_end)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		b.Subscription.UserUID, b.Subscription.PlanUID, b.Subscription.Status,
		b.Subscription.IsTrialActive, b.Subscription.TrialStart, b.Subscription.TrialEnd,
		b.Subscription.CurrentPeriodStart, b.Subscription.CurrentPeriodEnd).Scan(&b.Subscription.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if b.Invoice != nil {
		b.Invoice.UserUID = b.User.UID
		b.Invoice.SubscriptionID = b.Subscription.ID
		b.Invoice.Status = models.InvoiceStatusUnpaid
		b.Invoice.CreatedAt = time.Now().UTC()
		err = tx.QueryRowContext(ctx,
			`INSERT INTO invoices (user_uid, subscription_id, amount, currency, status)
			 VALUES ($1, $2, $3, $4, 'unpaid')
			 RETURNING id`,
			b.Invoice.UserUID, b.Invoice.SubscriptionID, b.Invoice.Amount,
			b.Invoice.Currency).Scan(&b.Invoice.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &b, nil
}
