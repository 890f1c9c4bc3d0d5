package models

import "time"

// UserSubscription представляет текущее состояние подписки пользователя.
// На одного пользователя существует не более одной строки: запись создаётся
// или перезаписывается при завершении checkout-сессии (upsert по user_uid),
// последующие события провайдера изменяют статус и границы периода.
// Отмена — это переход статуса, строка никогда не удаляется.
type UserSubscription struct {
	ID                   int        `json:"id"`
	UserUID              string     `json:"user_uid"`
	PlanID               string     `json:"plan_id"`
	StripeSessionID      string     `json:"stripe_session_id"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id,omitempty"`
	StripeCustomerID     *string    `json:"stripe_customer_id,omitempty"`
	Status               string     `json:"status"`
	BillingPeriod        string     `json:"billing_period"`
	CurrentPeriodStart   time.Time  `json:"current_period_start"`
	CurrentPeriodEnd     time.Time  `json:"current_period_end"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty"`
}

// Статусы подписки. Событие customer.subscription.updated может записать
// и другой статус провайдера как есть (passthrough).
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// Периоды оплаты.
const (
	BillingPeriodMonthly = "monthly"
	BillingPeriodYearly  = "yearly"
)

// StatusChangedEvent сообщение о смене статуса подписки, публикуемое
// в RabbitMQ для сервисов уведомлений.
type StatusChangedEvent struct {
	EventID              string    `json:"event_id"`
	UserUID              string    `json:"user_uid"`
	StripeSubscriptionID string    `json:"stripe_subscription_id,omitempty"`
	PlanID               string    `json:"plan_id,omitempty"`
	Status               string    `json:"status"`
	OccurredAt           time.Time `json:"occurred_at"`
}
