// Package subscriptionstatus обрабатывает межсервисные запросы статуса
// подписки. Эндпоинт защищён API-ключом, а не пользовательским JWT:
// его вызывают другие сервисы площадки при проверке доступа.
package subscriptionstatus

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/tradeboard/billing-service/internal/http/response"
	"github.com/tradeboard/billing-service/internal/lib/sl"
)

// Service определяет интерфейс проверки статуса подписки.
type Service interface {
	GetSubscriptionStatus(ctx context.Context, userUID string) (bool, error)
}

// Handler обрабатывает межсервисные запросы статуса подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Статус подписки пользователя
// @Description Сообщает, есть ли у пользователя действующий платный доступ
// @Tags Internal
// @Produce  json
// @Param user_uid path string true "UID пользователя"
// @Success 200 {object} response.Response "Флаг активности подписки"
// @Failure 400 {object} response.ErrorResponse "Не указан UID пользователя"
// @Failure 401 {object} response.ErrorResponse "Невалидный API-ключ"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /internal/subscriptions/{user_uid} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.internalapi.subscriptionstatus"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID := chi.URLParam(r, "user_uid")
	if userUID == "" {
		log.Error("missing user uid")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing user uid"))
		return
	}

	active, err := h.service.GetSubscriptionStatus(r.Context(), userUID)
	if err != nil {
		log.Error("failed to get subscription status", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to get subscription status"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]bool{"active": active}))
}
