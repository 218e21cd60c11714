package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// CreateObligation вставляет новое обязательство и возвращает его ID.
func (s *Storage) CreateObligation(ctx context.Context, ob models.Obligation) (int64, error) {
	const op = "storage.CreateObligation"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO obligations (brand_uid, kind, entity_name, amount, due_date, status, auto_convert)
			  VALUES ($1, $2, $3, $4, $5, 'current', $6)
			  RETURNING id`
	var newID int64
	err := s.DB.QueryRowContext(ctx, query,
		ob.BrandUID, ob.Kind, ob.EntityName, ob.Amount, ob.DueDate, ob.AutoConvert).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListObligations возвращает обязательства бренда с пагинацией.
func (s *Storage) ListObligations(ctx context.Context, brandUID string, limit, offset int) ([]*models.Obligation, error) {
	const op = "storage.ListObligations"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, brand_uid, kind, entity_name, amount, due_date, status, auto_convert
			  FROM obligations
			  WHERE brand_uid = $1
			  ORDER BY due_date
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, brandUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Obligation
	for rows.Next() {
		var item models.Obligation
		if err := rows.Scan(&item.ID, &item.BrandUID, &item.Kind, &item.EntityName,
			&item.Amount, &item.DueDate, &item.Status, &item.AutoConvert); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindDueObligations возвращает обязательства с прошедшим сроком,
// ещё не оплаченные и не сконвертированные.
func (s *Storage) FindDueObligations(ctx context.Context, now time.Time) ([]*models.Obligation, error) {
	const op = "storage.FindDueObligations"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, brand_uid, kind, entity_name, amount, due_date, status, auto_convert
			  FROM obligations
			  WHERE due_date <= $1 AND status NOT IN ('paid', 'converted')
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Obligation
	for rows.Next() {
		var item models.Obligation
		if err := rows.Scan(&item.ID, &item.BrandUID, &item.Kind, &item.EntityName,
			&item.Amount, &item.DueDate, &item.Status, &item.AutoConvert); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ConvertObligation атомарно создаёт проводку и помечает обязательство
// сконвертированным. Предикат status <> 'converted' плюс уникальный индекс
// по obligation_id в ledger_entries дают ровно одну проводку даже при
// конкурирующих прогонах: проигравший откатывается без эффекта.
func (s *Storage) ConvertObligation(ctx context.Context, ob *models.Obligation, entryKind string, now time.Time) (int, error) {
	const op = "storage.ConvertObligation"
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

	result, err := tx.ExecContext(ctx, `UPDATE obligations
			  SET status = 'converted'
			  WHERE id = $1 AND status <> 'converted' AND status <> 'paid'`, ob.ID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return 0, nil
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO ledger_entries (brand_uid, obligation_id, kind, amount, entry_date)
			  VALUES ($1, $2, $3, $4, $5)`,
		ob.BrandUID, ob.ID, entryKind, ob.Amount, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// AgeObligationStatus пересчитывает статус обязательства по возрасту долга.
// Монотонно: critical не откатывается в overdue, paid и converted не трогаются.
func (s *Storage) AgeObligationStatus(ctx context.Context, id int64, newStatus string) (int, error) {
	const op = "storage.AgeObligationStatus"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE obligations
			  SET status = $1
			  WHERE id = $2 AND status NOT IN ('paid', 'converted') AND status <> $1
			    AND NOT (status = 'critical' AND $1 = 'overdue')`
	result, err := s.DB.ExecContext(ctx, query, newStatus, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// MarkObligationPaid помечает обязательство оплаченным по ручному действию.
// Сконвертированные записи неизменяемы, предикат их исключает.
func (s *Storage) MarkObligationPaid(ctx context.Context, id int64, brandUID string) (int, error) {
	const op = "storage.MarkObligationPaid"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE obligations
			  SET status = 'paid'
			  WHERE id = $1 AND brand_uid = $2 AND status <> 'converted'`
	result, err := s.DB.ExecContext(ctx, query, id, brandUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// CountLedgerEntriesForObligation возвращает число проводок по обязательству.
func (s *Storage) CountLedgerEntriesForObligation(ctx context.Context, obligationID int64) (int, error) {
	const op = "storage.CountLedgerEntriesForObligation"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	query := `SELECT COUNT(*) FROM ledger_entries WHERE obligation_id = $1`
	if err := s.DB.QueryRowContext(ctx, query, obligationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
