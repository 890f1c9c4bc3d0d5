// Package subscriptionread обрабатывает получение подписки текущего пользователя.
package subscriptionread

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/tradeboard/billing-service/internal/http/middlewarectx"
	"github.com/tradeboard/billing-service/internal/http/response"
	"github.com/tradeboard/billing-service/internal/lib/sl"
	"github.com/tradeboard/billing-service/internal/models"
	"github.com/tradeboard/billing-service/internal/storage/repository"
)

// Service определяет интерфейс для чтения подписок.
type Service interface {
	GetByUserUID(ctx context.Context, userUID string) (*models.UserSubscription, error)
}

// Handler обрабатывает запросы подписки пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Подписка текущего пользователя
// @Description Возвращает текущее состояние подписки авторизованного пользователя
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} response.Response "Подписка"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscriptions/me [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.subscriptionread"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user UID not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	sub, err := h.service.GetByUserUID(r.Context(), userUID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			log.Info("subscription not found", slog.String("user_uid", userUID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("subscription not found"))
			return
		}
		log.Error("failed to get subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to get subscription"))
		return
	}

	render.JSON(w, r, response.OKWithData(sub))
}
