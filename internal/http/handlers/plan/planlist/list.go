// Package planlist обрабатывает получение списка тарифных планов.
package planlist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/tradeboard/billing-service/internal/http/response"
	"github.com/tradeboard/billing-service/internal/lib/sl"
	"github.com/tradeboard/billing-service/internal/models"
)

// Service определяет интерфейс каталога тарифных планов.
type Service interface {
	ListPlans(ctx context.Context) ([]*models.Plan, error)
}

// Handler обрабатывает запросы списка планов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список тарифных планов
// @Description Возвращает активные тарифные планы по возрастанию цены
// @Tags Plans
// @Produce  json
// @Success 200 {object} response.Response "Список планов"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.planlist"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		log.Error("failed to list plans", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list plans"))
		return
	}

	render.JSON(w, r, response.OKWithData(plans))
}
