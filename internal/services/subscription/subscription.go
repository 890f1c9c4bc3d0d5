// Package subscription отдаёт состояние подписки и историю платежей
// пользователя. Запись состояния идёт только через реконсилятор
// вебхуков, этот сервис — читающая сторона.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tradeboard/billing-service/internal/models"
	"github.com/tradeboard/billing-service/internal/storage/repository"
)

// Repository описывает читающие операции хранилища.
type Repository interface {
	GetSubscriptionByUserUID(ctx context.Context, userUID string) (*models.UserSubscription, error)
	ListPaymentsByUser(ctx context.Context, userUID string) ([]*models.Payment, error)
}

// Service — сервис чтения подписок.
type Service struct {
	log  *slog.Logger
	repo Repository
	now  func() time.Time
}

// New создаёт сервис чтения подписок.
func New(log *slog.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo, now: time.Now}
}

// GetByUserUID возвращает текущую подписку пользователя.
func (s *Service) GetByUserUID(ctx context.Context, userUID string) (*models.UserSubscription, error) {
	const op = "services.subscription.GetByUserUID"

	sub, err := s.repo.GetSubscriptionByUserUID(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// ListPayments возвращает историю платежей пользователя, новые первыми.
func (s *Service) ListPayments(ctx context.Context, userUID string) ([]*models.Payment, error) {
	const op = "services.subscription.ListPayments"

	payments, err := s.repo.ListPaymentsByUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}

// GetSubscriptionStatus сообщает, есть ли у пользователя действующий
// доступ: статус active и расчётный период ещё не истёк. Отсутствие
// подписки — не ошибка, а false.
func (s *Service) GetSubscriptionStatus(ctx context.Context, userUID string) (bool, error) {
	const op = "services.subscription.GetSubscriptionStatus"

	sub, err := s.repo.GetSubscriptionByUserUID(ctx, userUID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	active := sub.Status == models.SubscriptionStatusActive &&
		sub.CurrentPeriodEnd.After(s.now())
	return active, nil
}
