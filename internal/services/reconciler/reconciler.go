// Package reconciler сводит события вебхуков Stripe с локальным
// состоянием подписок: записывает платежи, создаёт и обновляет записи
// подписок, рассылает уведомления об изменении статуса.
package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v76"

	"github.com/tradeboard/billing-service/internal/lib/period"
	"github.com/tradeboard/billing-service/internal/lib/sl"
	"github.com/tradeboard/billing-service/internal/models"
)

// Repository описывает операции хранилища, нужные реконсилятору.
type Repository interface {
	SavePayment(ctx context.Context, payment models.Payment) (int, error)
	UpsertSubscription(ctx context.Context, sub models.UserSubscription) error
	UpdateStatusByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID, status string) (int64, error)
	UpdatePeriodsByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID, status string, periodStart, periodEnd time.Time) (int64, error)
	UpdateFromEventByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID, status string, periodStart, periodEnd time.Time, cancelAtPeriodEnd bool) (int64, error)
}

// PlanCatalog отдаёт тарифные планы по идентификатору.
type PlanCatalog interface {
	GetPlan(ctx context.Context, planID string) (*models.Plan, error)
}

// ProviderClient загружает актуальное состояние подписки из Stripe.
type ProviderClient interface {
	RetrieveSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
}

// Notifier публикует события об изменении статуса подписки.
type Notifier interface {
	SubscriptionStatusChanged(userUID, stripeSubscriptionID, planID, status string) error
}

// Метаданные, которые проставляются при создании checkout-сессии.
const (
	metadataUserID        = "user_id"
	metadataPlanID        = "plan_id"
	metadataBillingPeriod = "billing_period"
	metadataFreePromo     = "free_promo"
)

// freePromoPeriodEnd — дата окончания доступа для промо-подписок
// запуска. Промо раздаётся до фиксированной даты, а не на период.
var freePromoPeriodEnd = time.Date(2026, time.March, 31, 23, 59, 59, 0, time.UTC)

// Service обрабатывает события Stripe. Сбои записи в хранилище
// логируются, но не прерывают обработку: Stripe повторяет доставку
// только при не-2xx ответе, а повтор события здесь безопасен.
type Service struct {
	log      *slog.Logger
	repo     Repository
	catalog  PlanCatalog
	provider ProviderClient
	notifier Notifier
	now      func() time.Time
}

// New создаёт реконсилятор событий Stripe.
func New(log *slog.Logger, repo Repository, catalog PlanCatalog, provider ProviderClient, notifier Notifier) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		catalog:  catalog,
		provider: provider,
		notifier: notifier,
		now:      time.Now,
	}
}

// HandleEvent разбирает событие по типу и передаёт соответствующему
// обработчику. Неизвестные типы подтверждаются без обработки. Ошибка
// возвращается только если полезную нагрузку не удалось раскодировать.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) error {
	const op = "services.reconciler.HandleEvent"
	log := s.log.With(
		slog.String("op", op),
		slog.String("event_id", event.ID),
		slog.String("event_type", string(event.Type)),
	)

	switch string(event.Type) {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("%s: decode checkout session: %w", op, err)
		}
		if err := s.handleCheckoutCompleted(ctx, log, &sess); err != nil {
			// Не возвращаем ошибку: Stripe повторит доставку события,
			// а повторная обработка здесь безопасна.
			log.Error("failed to activate subscription from checkout session", sl.Err(err))
		}

	case "invoice.payment_succeeded":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("%s: decode invoice: %w", op, err)
		}
		s.handleInvoicePaymentSucceeded(ctx, log, &inv)

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("%s: decode invoice: %w", op, err)
		}
		s.handleInvoicePaymentFailed(ctx, log, &inv)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("%s: decode subscription: %w", op, err)
		}
		s.handleSubscriptionDeleted(ctx, log, &sub)

	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("%s: decode subscription: %w", op, err)
		}
		s.handleSubscriptionUpdated(ctx, log, &sub)

	default:
		log.Info("ignoring unhandled event type")
	}

	return nil
}

// ActivatePromo активирует бесплатный промо-план без обращения к
// Stripe: собирается синтетическая checkout-сессия с теми же
// метаданными, что и у провайдерских, и проходит общий путь активации.
func (s *Service) ActivatePromo(ctx context.Context, userUID string, plan *models.Plan) error {
	const op = "services.reconciler.ActivatePromo"
	log := s.log.With(
		slog.String("op", op),
		slog.String("user_uid", userUID),
		slog.String("plan_id", plan.ID),
	)

	sess := &stripe.CheckoutSession{
		ID:       "promo_" + userUID,
		Currency: stripe.Currency(models.DefaultCurrency),
		Metadata: map[string]string{
			metadataUserID:        userUID,
			metadataPlanID:        plan.ID,
			metadataBillingPeriod: models.BillingPeriodMonthly,
			metadataFreePromo:     "true",
		},
	}

	if err := s.handleCheckoutCompleted(ctx, log, sess); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// handleCheckoutCompleted записывает платёж и создаёт либо
// перезаписывает подписку пользователя из завершённой checkout-сессии.
// Ошибка возвращается только если не удалось записать саму подписку.
func (s *Service) handleCheckoutCompleted(ctx context.Context, log *slog.Logger, sess *stripe.CheckoutSession) error {
	userUID := sess.Metadata[metadataUserID]
	planID := sess.Metadata[metadataPlanID]
	if userUID == "" || planID == "" {
		log.Warn("checkout session missing required metadata, skipping",
			slog.String("session_id", sess.ID))
		return nil
	}

	billingPeriod := sess.Metadata[metadataBillingPeriod]
	if billingPeriod == "" {
		billingPeriod = models.BillingPeriodMonthly
	}
	freePromo := sess.Metadata[metadataFreePromo] == "true"

	log = log.With(
		slog.String("user_uid", userUID),
		slog.String("plan_id", planID),
	)

	planName := planID
	if plan, err := s.catalog.GetPlan(ctx, planID); err != nil {
		log.Warn("plan not found in catalog, keeping raw plan id", sl.Err(err))
	} else {
		planName = plan.Name
	}

	currency := string(sess.Currency)
	if currency == "" {
		currency = models.DefaultCurrency
	}

	payment := models.Payment{
		UserUID:         userUID,
		StripePaymentID: resolvePaymentID(sess, userUID, freePromo),
		Amount:          sess.AmountTotal,
		Currency:        currency,
		Status:          models.PaymentStatusSucceeded,
		PlanName:        planName,
	}
	if _, err := s.repo.SavePayment(ctx, payment); err != nil {
		log.Error("failed to save payment", sl.Err(err))
	}

	periodStart := s.now().UTC()
	var periodEnd time.Time

	switch {
	case freePromo:
		periodEnd = freePromoPeriodEnd

	case sess.Mode == stripe.CheckoutSessionModeSubscription && sess.Subscription != nil:
		// Расчётные периоды берём из Stripe: там учтены триалы,
		// пропорциональные доплаты и прочие сдвиги биллинга.
		live, err := s.provider.RetrieveSubscription(ctx, sess.Subscription.ID)
		if err != nil {
			log.Error("failed to retrieve subscription from stripe, falling back to computed period", sl.Err(err))
			periodEnd = period.Add(periodStart, billingPeriod)
		} else {
			periodStart = time.Unix(live.CurrentPeriodStart, 0).UTC()
			periodEnd = time.Unix(live.CurrentPeriodEnd, 0).UTC()
		}

	default:
		periodEnd = period.Add(periodStart, billingPeriod)
	}

	sub := models.UserSubscription{
		UserUID:            userUID,
		PlanID:             planID,
		StripeSessionID:    sess.ID,
		Status:             models.SubscriptionStatusActive,
		BillingPeriod:      billingPeriod,
		CurrentPeriodStart: periodStart,
		CurrentPeriodEnd:   periodEnd,
		CancelAtPeriodEnd:  false,
	}
	if sess.Subscription != nil && sess.Subscription.ID != "" {
		id := sess.Subscription.ID
		sub.StripeSubscriptionID = &id
	}
	if sess.Customer != nil && sess.Customer.ID != "" {
		id := sess.Customer.ID
		sub.StripeCustomerID = &id
	}

	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}

	log.Info("subscription activated from checkout session",
		slog.String("session_id", sess.ID),
		slog.Time("period_end", periodEnd))

	s.notify(log, userUID, stripeSubscriptionID(sub), planID, models.SubscriptionStatusActive)
	return nil
}

// handleInvoicePaymentSucceeded продлевает подписку по успешному
// списанию: периоды берутся из актуального объекта подписки в Stripe.
func (s *Service) handleInvoicePaymentSucceeded(ctx context.Context, log *slog.Logger, inv *stripe.Invoice) {
	subID, ok := subscriptionIDFromInvoice(inv)
	if !ok {
		log.Info("invoice carries no subscription reference, skipping")
		return
	}
	log = log.With(slog.String("stripe_subscription_id", subID))

	live, err := s.provider.RetrieveSubscription(ctx, subID)
	if err != nil {
		log.Error("failed to retrieve subscription from stripe", sl.Err(err))
		return
	}

	rows, err := s.repo.UpdatePeriodsByStripeSubscriptionID(ctx, subID,
		models.SubscriptionStatusActive,
		time.Unix(live.CurrentPeriodStart, 0).UTC(),
		time.Unix(live.CurrentPeriodEnd, 0).UTC())
	if err != nil {
		log.Error("failed to update subscription periods", sl.Err(err))
		return
	}
	if rows == 0 {
		log.Warn("no local subscription matched invoice")
		return
	}

	log.Info("subscription renewed")
	s.notify(log, "", subID, "", models.SubscriptionStatusActive)
}

// handleInvoicePaymentFailed помечает подписку просроченной. Доступ не
// отзывается: Stripe ещё будет повторять списание.
func (s *Service) handleInvoicePaymentFailed(ctx context.Context, log *slog.Logger, inv *stripe.Invoice) {
	subID, ok := subscriptionIDFromInvoice(inv)
	if !ok {
		log.Info("invoice carries no subscription reference, skipping")
		return
	}
	log = log.With(slog.String("stripe_subscription_id", subID))

	rows, err := s.repo.UpdateStatusByStripeSubscriptionID(ctx, subID, models.SubscriptionStatusPastDue)
	if err != nil {
		log.Error("failed to mark subscription past_due", sl.Err(err))
		return
	}
	if rows == 0 {
		log.Warn("no local subscription matched invoice")
		return
	}

	log.Info("subscription marked past_due")
	s.notify(log, "", subID, "", models.SubscriptionStatusPastDue)
}

// handleSubscriptionDeleted переводит подписку в canceled.
func (s *Service) handleSubscriptionDeleted(ctx context.Context, log *slog.Logger, sub *stripe.Subscription) {
	log = log.With(slog.String("stripe_subscription_id", sub.ID))

	rows, err := s.repo.UpdateStatusByStripeSubscriptionID(ctx, sub.ID, models.SubscriptionStatusCanceled)
	if err != nil {
		log.Error("failed to cancel subscription", sl.Err(err))
		return
	}
	if rows == 0 {
		log.Warn("no local subscription matched deletion event")
		return
	}

	log.Info("subscription canceled")
	s.notify(log, "", sub.ID, "", models.SubscriptionStatusCanceled)
}

// handleSubscriptionUpdated синхронизирует статус, периоды и флаг
// отмены в конце периода из события, без обращения к Stripe API.
func (s *Service) handleSubscriptionUpdated(ctx context.Context, log *slog.Logger, sub *stripe.Subscription) {
	status := normalizeStatus(sub.Status)
	log = log.With(
		slog.String("stripe_subscription_id", sub.ID),
		slog.String("status", status),
	)

	rows, err := s.repo.UpdateFromEventByStripeSubscriptionID(ctx, sub.ID, status,
		time.Unix(sub.CurrentPeriodStart, 0).UTC(),
		time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		sub.CancelAtPeriodEnd)
	if err != nil {
		log.Error("failed to apply subscription update", sl.Err(err))
		return
	}
	if rows == 0 {
		log.Warn("no local subscription matched update event")
		return
	}

	log.Info("subscription updated")
	s.notify(log, "", sub.ID, "", status)
}

func (s *Service) notify(log *slog.Logger, userUID, stripeSubscriptionID, planID, status string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SubscriptionStatusChanged(userUID, stripeSubscriptionID, planID, status); err != nil {
		log.Warn("failed to publish status change notification", sl.Err(err))
	}
}

// resolvePaymentID подбирает стабильный идентификатор платежа. Не у
// каждой сессии есть payment intent: у подписок платёж идёт через
// инвойс, у бесплатных промо платежа нет вовсе.
func resolvePaymentID(sess *stripe.CheckoutSession, userUID string, freePromo bool) string {
	switch {
	case sess.PaymentIntent != nil && sess.PaymentIntent.ID != "":
		return sess.PaymentIntent.ID
	case sess.Subscription != nil && sess.Subscription.ID != "":
		return "sub_" + sess.Subscription.ID
	case freePromo:
		return "promo_" + userUID
	default:
		return "session_" + sess.ID
	}
}

// subscriptionIDFromInvoice достаёт идентификатор подписки из инвойса.
// Stripe присылает ссылку либо строкой, либо развёрнутым объектом;
// stripe-go в обоих случаях даёт *Subscription с заполненным ID.
func subscriptionIDFromInvoice(inv *stripe.Invoice) (string, bool) {
	if inv == nil || inv.Subscription == nil || inv.Subscription.ID == "" {
		return "", false
	}
	return inv.Subscription.ID, true
}

// normalizeStatus сводит статусы Stripe к локальному словарю. Значения
// вне словаря (trialing, unpaid и т.п.) сохраняются как есть.
func normalizeStatus(status stripe.SubscriptionStatus) string {
	switch status {
	case stripe.SubscriptionStatusActive:
		return models.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue:
		return models.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusCanceled:
		return models.SubscriptionStatusCanceled
	default:
		return string(status)
	}
}

func stripeSubscriptionID(sub models.UserSubscription) string {
	if sub.StripeSubscriptionID == nil {
		return ""
	}
	return *sub.StripeSubscriptionID
}
