package models

// DummyCheckoutRequest используется для приёма данных из JSON-запроса
// на создание checkout-сессии, прежде чем передать их платёжному провайдеру.
type DummyCheckoutRequest struct {
	PlanID        string `json:"plan_id" validate:"required"`                             // Идентификатор тарифного плана
	BillingPeriod string `json:"billing_period" validate:"required,oneof=monthly yearly"` // Период оплаты
	SuccessURL    string `json:"success_url" validate:"required,url"`                     // Возврат после успешной оплаты
	CancelURL     string `json:"cancel_url" validate:"required,url"`                      // Возврат после отмены
}
