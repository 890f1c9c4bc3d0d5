package repository

import (
	"context"
	"fmt"

	"github.com/tradeboard/billing-service/internal/models"
)

// SavePayment сохраняет запись о платеже в журнал и возвращает её ID.
// Журнал ведётся только на добавление.
func (s *Storage) SavePayment(ctx context.Context, payment models.Payment) (int, error) {
	const op = "storage.SavePayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (user_uid, stripe_payment_id, amount, currency, status, plan_name, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		payment.UserUID, payment.StripePaymentID, payment.Amount,
		payment.Currency, payment.Status, payment.PlanName).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListPaymentsByUser возвращает записи журнала платежей пользователя,
// начиная с самых новых.
func (s *Storage) ListPaymentsByUser(ctx context.Context, userUID string) ([]*models.Payment, error) {
	const op = "storage.ListPaymentsByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, stripe_payment_id, amount, currency, status, plan_name, created_at
			  FROM payments
			  WHERE user_uid = $1
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.UserUID, &p.StripePaymentID, &p.Amount,
			&p.Currency, &p.Status, &p.PlanName, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	return result, nil
}
