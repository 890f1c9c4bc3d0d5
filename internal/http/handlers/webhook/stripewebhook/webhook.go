// Package stripewebhook принимает вебхуки Stripe — единственный канал,
// по которому платёжные события меняют состояние подписок.
package stripewebhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/tradeboard/billing-service/internal/http/response"
	"github.com/tradeboard/billing-service/internal/lib/sl"
)

// Лимит размера тела вебхука, рекомендованный Stripe.
const maxBodyBytes = 65536

// Service определяет интерфейс реконсилятора событий Stripe.
type Service interface {
	HandleEvent(ctx context.Context, event stripe.Event) error
}

// Handler обрабатывает вебхуки Stripe.
type Handler struct {
	log              *slog.Logger
	service          Service
	webhookSecret    string
	apiKeyConfigured bool
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, webhookSecret string, apiKeyConfigured bool) *Handler {
	return &Handler{
		log:              log,
		service:          service,
		webhookSecret:    webhookSecret,
		apiKeyConfigured: apiKeyConfigured,
	}
}

// ServeHTTP godoc
// @Summary Принять вебхук Stripe
// @Description Проверяет подпись Stripe-Signature и применяет событие к состоянию подписок
// @Tags Webhooks
// @Accept  json
// @Produce  json
// @Success 200 {object} response.Response "Событие подтверждено"
// @Failure 400 {object} response.ErrorResponse "Невалидная подпись или тело запроса"
// @Failure 500 {object} response.ErrorResponse "Ошибка обработки события"
// @Router /webhooks/stripe [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.stripewebhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	// Подпись считается по сырому телу, поэтому никакого декодирования
	// до проверки. Невалидная подпись — 400, Stripe доставку не повторит.
	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		log.Error("webhook signature verification failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	log.Info("webhook event received",
		slog.String("event_id", event.ID),
		slog.String("event_type", string(event.Type)))

	if err := h.service.HandleEvent(r.Context(), event); err != nil {
		log.Error("failed to handle webhook event", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to handle event"))
		return
	}

	render.JSON(w, r, response.OK())
}

// ConfigProbe godoc
// @Summary Проверить конфигурацию Stripe
// @Description Сообщает, заданы ли секреты Stripe, не раскрывая их значений
// @Tags Webhooks
// @Produce  json
// @Success 200 {object} map[string]bool "Флаги конфигурации"
// @Router /webhooks/stripe [get]
func (h *Handler) ConfigProbe(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]bool{
		"webhook_secret_configured": h.webhookSecret != "",
		"api_key_configured":        h.apiKeyConfigured,
	})
}
