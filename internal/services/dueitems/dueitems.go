// Package dueitems содержит фоновую обработку просроченных обязательств:
// автоконвертацию в проводки и пересчёт статуса по возрасту долга.
//
// Прогон безопасен на минутной каденции по построению, а не за счёт
// rate-limiting: конвертация охраняется предикатом status <> 'converted'
// и уникальным индексом проводки, пересчёт статуса монотонен.
package dueitems

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/apperr"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// criticalAge возраст долга, после которого статус становится critical.
const criticalAge = 30 * 24 * time.Hour

// Repository определяет методы хранилища для обработки обязательств.
type Repository interface {
	FindDueObligations(ctx context.Context, now time.Time) ([]*models.Obligation, error)
	ConvertObligation(ctx context.Context, ob *models.Obligation, entryKind string, now time.Time) (int, error)
	AgeObligationStatus(ctx context.Context, id int64, newStatus string) (int, error)
	CreateObligation(ctx context.Context, ob models.Obligation) (int64, error)
	ListObligations(ctx context.Context, brandUID string, limit, offset int) ([]*models.Obligation, error)
	MarkObligationPaid(ctx context.Context, id int64, brandUID string) (int, error)
	GetBrandByOwner(ctx context.Context, ownerUID string) (*models.Brand, error)
}

// Service реализует обработку обязательств с наступившим сроком.
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

// entryKindFor возвращает вид проводки для вида обязательства:
// дебиторка становится выручкой, кредиторка — расходом.
func entryKindFor(obKind string) string {
	if obKind == models.ObligationReceivable {
		return models.LedgerRevenue
	}
	return models.LedgerCost
}

// statusForAge возвращает статус обязательства по возрасту долга.
func statusForAge(dueDate, now time.Time) string {
	if dueDate.Before(now.Add(-criticalAge)) {
		return models.ObligationStatusCritical
	}
	return models.ObligationStatusOverdue
}

// RunSweep обходит обязательства с наступившим сроком. Сбой одной строки
// не прерывает обход остальных. Возвращает число изменённых строк.
func (s *Service) RunSweep(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	obligations, err := s.repo.FindDueObligations(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find due obligations: %w", err)
	}
	if len(obligations) == 0 {
		return 0, nil
	}
	s.log.Info("found due obligations", slog.Int("count", len(obligations)))

	processed := 0
	for _, ob := range obligations {
		if ob.AutoConvert {
			count, err := s.repo.ConvertObligation(ctx, ob, entryKindFor(ob.Kind), now)
			if err != nil {
				s.log.Error("failed to convert obligation",
					slog.Int64("obligation_id", ob.ID), sl.Err(err))
				continue
			}
			if count > 0 {
				s.log.Info("obligation converted to ledger entry",
					slog.Int64("obligation_id", ob.ID),
					slog.String("entry_kind", entryKindFor(ob.Kind)))
				processed++
			}
			continue
		}

		count, err := s.repo.AgeObligationStatus(ctx, ob.ID, statusForAge(ob.DueDate, now))
		if err != nil {
			s.log.Error("failed to age obligation status",
				slog.Int64("obligation_id", ob.ID), sl.Err(err))
			continue
		}
		if count > 0 {
			processed++
		}
	}
	return processed, nil
}

// brandFor возвращает бренд пользователя или ErrNotFound, если бренда нет.
func (s *Service) brandFor(ctx context.Context, userUID string) (*models.Brand, error) {
	brand, err := s.repo.GetBrandByOwner(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if brand == nil {
		return nil, apperr.Wrap(apperr.ErrNotFound, "user has no brand")
	}
	return brand, nil
}

// Create добавляет новое обязательство бренда пользователя.
func (s *Service) Create(ctx context.Context, userUID string, req models.DummyObligation) (int64, error) {
	dueDate, err := time.Parse("02-01-2006", req.DueDate)
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrValidation, "invalid due date, expected 02-01-2006")
	}

	brand, err := s.brandFor(ctx, userUID)
	if err != nil {
		return 0, err
	}

	ob := models.Obligation{
		BrandUID:    brand.UID,
		Kind:        req.Kind,
		EntityName:  req.EntityName,
		Amount:      req.Amount,
		DueDate:     dueDate,
		AutoConvert: req.AutoConvert,
	}
	id, err := s.repo.CreateObligation(ctx, ob)
	if err != nil {
		return 0, err
	}
	s.log.Info("created new obligation", slog.Int64("id", id), slog.String("kind", ob.Kind))
	return id, nil
}

// List возвращает обязательства бренда пользователя с пагинацией.
func (s *Service) List(ctx context.Context, userUID string, limit, offset int) ([]*models.Obligation, error) {
	brand, err := s.brandFor(ctx, userUID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListObligations(ctx, brand.UID, limit, offset)
}

// MarkPaid помечает обязательство оплаченным по ручному действию пользователя.
// Сконвертированную запись трогать нельзя: ноль затронутых строк — конфликт.
func (s *Service) MarkPaid(ctx context.Context, id int64, userUID string) error {
	brand, err := s.brandFor(ctx, userUID)
	if err != nil {
		return err
	}
	count, err := s.repo.MarkObligationPaid(ctx, id, brand.UID)
	if err != nil {
		return err
	}
	if count == 0 {
		return apperr.Wrap(apperr.ErrConflict, "obligation is converted or does not belong to the brand")
	}
	return nil
}
