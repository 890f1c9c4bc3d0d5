// Package paymentprovider инкапсулирует работу с API Stripe: получение
// актуального состояния подписки и создание checkout-сессий.
package paymentprovider

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/tradeboard/billing-service/internal/models"
)

// Client обёртка над клиентом Stripe с собственным API-ключом,
// без глобального состояния stripe.Key.
type Client struct {
	api *client.API
}

// NewClient создаёт новый клиент Stripe.
func NewClient(secretKey string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{api: api}
}

// RetrieveSubscription запрашивает у Stripe актуальное состояние подписки.
// Используется только для чтения авторитетных границ расчётного периода.
func (c *Client) RetrieveSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	const op = "paymentprovider.RetrieveSubscription"

	params := &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	}
	sub, err := c.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// CreateCheckoutSession создаёт checkout-сессию подписки. В метаданные
// записываются user_id, plan_id и billing_period: по ним webhook-обработчик
// позже свяжет событие провайдера с пользователем.
func (c *Client) CreateCheckoutSession(ctx context.Context, userUID string, plan *models.Plan,
	billingPeriod, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	const op = "paymentprovider.CreateCheckoutSession"

	amount := plan.PriceMonthly
	interval := "month"
	if billingPeriod == models.BillingPeriodYearly {
		amount = plan.PriceYearly
		interval = "year"
	}

	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(models.DefaultCurrency),
					UnitAmount: stripe.Int64(amount),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(interval),
					},
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(plan.DisplayName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata("user_id", userUID)
	params.AddMetadata("plan_id", plan.ID)
	params.AddMetadata("billing_period", billingPeriod)

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sess, nil
}
