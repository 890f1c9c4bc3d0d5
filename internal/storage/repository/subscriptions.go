package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tradeboard/billing-service/internal/models"
)

// ErrSubscriptionNotFound возвращается, когда у пользователя нет записи о подписке.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// UpsertSubscription создаёт или перезаписывает строку подписки пользователя.
// Ключом служит user_uid: на одного пользователя существует не более одной строки.
func (s *Storage) UpsertSubscription(ctx context.Context, sub models.UserSubscription) error {
	const op = "storage.UpsertSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO user_subscriptions (user_uid, plan_id, stripe_session_id,
			      stripe_subscription_id, stripe_customer_id, status, billing_period,
			      current_period_start, current_period_end, cancel_at_period_end, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
			  ON CONFLICT (user_uid) DO UPDATE SET
			      plan_id = EXCLUDED.plan_id,
			      stripe_session_id = EXCLUDED.stripe_session_id,
			      stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			      stripe_customer_id = EXCLUDED.stripe_customer_id,
			      status = EXCLUDED.status,
			      billing_period = EXCLUDED.billing_period,
			      current_period_start = EXCLUDED.current_period_start,
			      current_period_end = EXCLUDED.current_period_end,
			      cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			      updated_at = NOW()`
	_, err := s.DB.ExecContext(ctx, query,
		sub.UserUID, sub.PlanID, sub.StripeSessionID, sub.StripeSubscriptionID,
		sub.StripeCustomerID, sub.Status, sub.BillingPeriod,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateStatusByStripeSubscriptionID меняет статус подписки, найденной
// по идентификатору подписки провайдера, и возвращает количество
// изменённых строк.
func (s *Storage) UpdateStatusByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID, status string) (int64, error) {
	const op = "storage.UpdateStatusByStripeSubscriptionID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE user_subscriptions
			  SET status = $1, updated_at = NOW()
			  WHERE stripe_subscription_id = $2`
	result, err := s.DB.ExecContext(ctx, query, status, stripeSubscriptionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

// UpdatePeriodsByStripeSubscriptionID обновляет статус и границы расчётного
// периода подписки, найденной по идентификатору подписки провайдера.
func (s *Storage) UpdatePeriodsByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID, status string,
	periodStart, periodEnd time.Time) (int64, error) {
	const op = "storage.UpdatePeriodsByStripeSubscriptionID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE user_subscriptions
			  SET status = $1, current_period_start = $2, current_period_end = $3, updated_at = NOW()
			  WHERE stripe_subscription_id = $4`
	result, err := s.DB.ExecContext(ctx, query, status, periodStart, periodEnd, stripeSubscriptionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

// UpdateFromEventByStripeSubscriptionID обновляет статус, границы периода и
// флаг отмены в конце периода из данных события провайдера.
func (s *Storage) UpdateFromEventByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID, status string,
	periodStart, periodEnd time.Time, cancelAtPeriodEnd bool) (int64, error) {
	const op = "storage.UpdateFromEventByStripeSubscriptionID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE user_subscriptions
			  SET status = $1, current_period_start = $2, current_period_end = $3,
			      cancel_at_period_end = $4, updated_at = NOW()
			  WHERE stripe_subscription_id = $5`
	result, err := s.DB.ExecContext(ctx, query, status, periodStart, periodEnd,
		cancelAtPeriodEnd, stripeSubscriptionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

// GetSubscriptionByUserUID возвращает подписку пользователя по его uid.
func (s *Storage) GetSubscriptionByUserUID(ctx context.Context, userUID string) (*models.UserSubscription, error) {
	const op = "storage.GetSubscriptionByUserUID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, plan_id, stripe_session_id, stripe_subscription_id,
			      stripe_customer_id, status, billing_period, current_period_start,
			      current_period_end, cancel_at_period_end, updated_at
			  FROM user_subscriptions
			  WHERE user_uid = $1`
	sub := &models.UserSubscription{}
	row := s.DB.QueryRowContext(ctx, query, userUID)

	var stripeSubscriptionID, stripeCustomerID sql.NullString
	var updatedAt sql.NullTime
	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.PlanID, &sub.StripeSessionID,
		&stripeSubscriptionID, &stripeCustomerID, &sub.Status, &sub.BillingPeriod,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelAtPeriodEnd, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if stripeSubscriptionID.Valid {
		sub.StripeSubscriptionID = &stripeSubscriptionID.String
	}
	if stripeCustomerID.Valid {
		sub.StripeCustomerID = &stripeCustomerID.String
	}
	if updatedAt.Valid {
		sub.UpdatedAt = &updatedAt.Time
	}
	return sub, nil
}
