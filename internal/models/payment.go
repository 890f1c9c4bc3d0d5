package models

import "time"

// Payment представляет запись в журнале платежей. Журнал ведётся только
// на добавление: записи создаются при завершении checkout-сессии и никогда
// не обновляются и не удаляются.
type Payment struct {
	ID              int       `json:"id"`
	UserUID         string    `json:"user_uid"`
	StripePaymentID string    `json:"stripe_payment_id"`
	Amount          int64     `json:"amount"` // сумма в минимальных единицах валюты
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	PlanName        string    `json:"plan_name"`
	CreatedAt       time.Time `json:"created_at"`
}

// PaymentStatusSucceeded статус платежа, записываемого при успешном checkout.
const PaymentStatusSucceeded = "succeeded"

// DefaultCurrency валюта по умолчанию, если провайдер её не передал.
const DefaultCurrency = "nzd"
