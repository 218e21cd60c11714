package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/apperr"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

func scanPlan(row *sql.Row) (*models.Plan, error) {
	var p models.Plan
	var features []byte
	if err := row.Scan(&p.UID, &p.Name, &p.Tier, &p.MonthlyPrice, &p.YearlyPrice,
		&p.TrialDays, &features, &p.IsActive); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(features, &p.Features); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPlan возвращает тариф по его UID.
func (s *Storage) GetPlan(ctx context.Context, planUID string) (*models.Plan, error) {
	const op = "storage.GetPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, name, tier, monthly_price, yearly_price, trial_days, features, is_active
			  FROM plans WHERE uid = $1`
	plan, err := scanPlan(s.DB.QueryRowContext(ctx, query, planUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plan, nil
}

// GetFreePlan возвращает тариф бесплатного уровня, на который переводятся
// подписки с истёкшим пробным периодом.
func (s *Storage) GetFreePlan(ctx context.Context) (*models.Plan, error) {
	const op = "storage.GetFreePlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, name, tier, monthly_price, yearly_price, trial_days, features, is_active
			  FROM plans WHERE tier = 'free' AND is_active LIMIT 1`
	plan, err := scanPlan(s.DB.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plan, nil
}
