package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tradeboard/billing-service/internal/models"
)

// ErrPlanNotFound возвращается, когда тарифный план отсутствует в каталоге.
var ErrPlanNotFound = errors.New("plan not found")

// GetPlan возвращает тарифный план по его идентификатору.
func (s *Storage) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	const op = "storage.GetPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, display_name, price_monthly, price_yearly, free_promo, active
			  FROM subscription_plans
			  WHERE id = $1`
	var p models.Plan
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.DisplayName, &p.PriceMonthly, &p.PriceYearly, &p.FreePromo, &p.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrPlanNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

// ListPlans возвращает все активные тарифные планы каталога.
func (s *Storage) ListPlans(ctx context.Context) ([]*models.Plan, error) {
	const op = "storage.ListPlans"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, display_name, price_monthly, price_yearly, free_promo, active
			  FROM subscription_plans
			  WHERE active = true
			  ORDER BY price_monthly`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Plan
	for rows.Next() {
		var p models.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.DisplayName, &p.PriceMonthly,
			&p.PriceYearly, &p.FreePromo, &p.Active); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	return result, nil
}
