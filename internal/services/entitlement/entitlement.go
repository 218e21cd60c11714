// Package entitlement (services) отвечает на вопросы доступа для конкретного
// пользователя: поднимает свежий снимок подписки из хранилища, тариф —
// через Redis-кеш (тарифы неизменяемы, подписки не кешируются никогда)
// и отдаёт решение резолверу.
package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/entitlement"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// Repository определяет методы хранилища для построения снимка.
type Repository interface {
	GetSubscriptionByUser(ctx context.Context, userUID string) (*models.Subscription, error)
	GetPlan(ctx context.Context, planUID string) (*models.Plan, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
}

// Service отвечает на запросы доступа к разделам и лимитам.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// snapshot строит снимок подписки и тарифа пользователя. Любая ошибка
// чтения отдаётся вызывающему: тот решает, деградировать ли в отказ.
func (s *Service) snapshot(ctx context.Context, userUID string) (entitlement.Snapshot, error) {
	sub, err := s.repo.GetSubscriptionByUser(ctx, userUID)
	if err != nil {
		return entitlement.Snapshot{}, fmt.Errorf("load subscription: %w", err)
	}
	if sub == nil {
		return entitlement.Snapshot{}, nil
	}

	var plan *models.Plan
	cacheKey := fmt.Sprintf("plan:%s", sub.PlanUID)
	found, err := s.cache.Get(cacheKey, &plan)
	if err != nil {
		s.log.Warn("failed to read plan from cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	if !found || plan == nil {
		plan, err = s.repo.GetPlan(ctx, sub.PlanUID)
		if err != nil {
			return entitlement.Snapshot{}, fmt.Errorf("load plan: %w", err)
		}
		if err := s.cache.Set(cacheKey, plan, time.Hour); err != nil {
			s.log.Warn("failed to cache plan", slog.String("key", cacheKey), slog.Any("err", err))
		}
	}
	return entitlement.Snapshot{Subscription: sub, Plan: plan}, nil
}

// CheckSectionAccess отвечает, доступен ли раздел пользователю.
// Никогда не возвращает ошибку наружу: при сбое чтения ответ — отказ,
// чтобы HTTP-слой деградировал безопасно.
func (s *Service) CheckSectionAccess(ctx context.Context, userUID, sectionKey string) bool {
	snap, err := s.snapshot(ctx, userUID)
	if err != nil {
		s.log.Error("entitlement check degraded to deny", slog.Any("err", err))
		return false
	}
	return entitlement.HasSectionAccess(snap, sectionKey)
}

// GetPlanLimit возвращает лимит пользователя по ключу, -1 — без ограничений.
func (s *Service) GetPlanLimit(ctx context.Context, userUID, limitKey string) int {
	snap, err := s.snapshot(ctx, userUID)
	if err != nil {
		s.log.Error("limit check degraded to zero", slog.Any("err", err))
		return 0
	}
	return entitlement.PlanLimit(snap, limitKey)
}

// LockMessage возвращает текст блокировки раздела для пользователя.
func (s *Service) LockMessage(ctx context.Context, userUID, sectionKey string) string {
	snap, err := s.snapshot(ctx, userUID)
	if err != nil {
		return "subscription required"
	}
	return entitlement.LockMessage(snap, sectionKey)
}
