// Package catalog отдаёт тарифные планы, кэшируя их в Redis.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tradeboard/billing-service/internal/lib/sl"
	"github.com/tradeboard/billing-service/internal/models"
)

// Repository описывает операции хранилища для планов.
type Repository interface {
	GetPlan(ctx context.Context, planID string) (*models.Plan, error)
	ListPlans(ctx context.Context) ([]*models.Plan, error)
}

// Cache описывает операции кэша.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

const (
	planCacheTTL     = time.Hour
	planListCacheKey = "plans:all"
)

// Service — сервис каталога тарифных планов. Планы меняются редко,
// поэтому промахи кэша не критичны: ошибки кэша логируются и запрос
// уходит в хранилище.
type Service struct {
	log   *slog.Logger
	repo  Repository
	cache Cache
}

// New создаёт сервис каталога.
func New(log *slog.Logger, repo Repository, cache Cache) *Service {
	return &Service{log: log, repo: repo, cache: cache}
}

// GetPlan возвращает активный план по идентификатору.
func (s *Service) GetPlan(ctx context.Context, planID string) (*models.Plan, error) {
	const op = "services.catalog.GetPlan"
	log := s.log.With(slog.String("op", op), slog.String("plan_id", planID))

	cacheKey := fmt.Sprintf("plan:%s", planID)
	var cached models.Plan
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		log.Warn("failed to read plan from cache", sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Set(cacheKey, plan, planCacheTTL); err != nil {
		log.Warn("failed to cache plan", sl.Err(err))
	}
	return plan, nil
}

// ListPlans возвращает все активные планы.
func (s *Service) ListPlans(ctx context.Context) ([]*models.Plan, error) {
	const op = "services.catalog.ListPlans"
	log := s.log.With(slog.String("op", op))

	var cached []*models.Plan
	found, err := s.cache.Get(planListCacheKey, &cached)
	if err != nil {
		log.Warn("failed to read plan list from cache", sl.Err(err))
	}
	if found {
		return cached, nil
	}

	plans, err := s.repo.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Set(planListCacheKey, plans, planCacheTTL); err != nil {
		log.Warn("failed to cache plan list", sl.Err(err))
	}
	return plans, nil
}
