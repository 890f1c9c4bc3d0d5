// Package checkoutcreate обрабатывает создание checkout-сессий Stripe.
package checkoutcreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/stripe/stripe-go/v76"

	"github.com/tradeboard/billing-service/internal/http/middlewarectx"
	"github.com/tradeboard/billing-service/internal/http/response"
	"github.com/tradeboard/billing-service/internal/lib/sl"
	"github.com/tradeboard/billing-service/internal/models"
)

// ProviderClient определяет интерфейс для работы с платежным провайдером.
type ProviderClient interface {
	CreateCheckoutSession(ctx context.Context, userUID string, plan *models.Plan,
		billingPeriod, successURL, cancelURL string) (*stripe.CheckoutSession, error)
}

// PlanCatalog определяет интерфейс каталога тарифных планов.
type PlanCatalog interface {
	GetPlan(ctx context.Context, planID string) (*models.Plan, error)
}

// PromoActivator активирует бесплатные промо-планы без оплаты.
type PromoActivator interface {
	ActivatePromo(ctx context.Context, userUID string, plan *models.Plan) error
}

// Handler обрабатывает запросы на создание checkout-сессии.
type Handler struct {
	log            *slog.Logger
	providerClient ProviderClient
	catalog        PlanCatalog
	promo          PromoActivator
	validate       *validator.Validate // Валидатор структуры входящих данных
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, providerClient ProviderClient, catalog PlanCatalog, promo PromoActivator) *Handler {
	return &Handler{
		log:            log,
		providerClient: providerClient,
		catalog:        catalog,
		promo:          promo,
		validate:       validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать checkout-сессию
// @Description Создает сессию оплаты Stripe Checkout для выбранного тарифного плана
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param request body models.DummyCheckoutRequest true "Параметры оформления подписки"
// @Success 200 {object} response.Response "Идентификатор и URL сессии"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "План не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка создания сессии"
// @Router /billing/checkout [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.checkoutcreate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user UID not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	plan, err := h.catalog.GetPlan(r.Context(), req.PlanID)
	if err != nil {
		log.Error("plan not found", sl.Err(err), slog.String("plan_id", req.PlanID))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("plan not found"))
		return
	}

	// Промо-планы не проходят через Stripe: подписка активируется сразу.
	if plan.FreePromo {
		if err := h.promo.ActivatePromo(r.Context(), userUID, plan); err != nil {
			log.Error("failed to activate promo plan", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to activate promo plan"))
			return
		}

		log.Info("promo plan activated",
			slog.String("user_uid", userUID),
			slog.String("plan_id", plan.ID))

		render.JSON(w, r, response.OKWithData(map[string]string{
			"status": "activated",
		}))
		return
	}

	sess, err := h.providerClient.CreateCheckoutSession(r.Context(), userUID, plan,
		req.BillingPeriod, req.SuccessURL, req.CancelURL)
	if err != nil {
		log.Error("failed to create checkout session", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to create checkout session"))
		return
	}

	log.Info("checkout session created",
		slog.String("user_uid", userUID),
		slog.String("session_id", sess.ID))

	render.JSON(w, r, response.OKWithData(map[string]string{
		"session_id":   sess.ID,
		"checkout_url": sess.URL,
	}))
}
