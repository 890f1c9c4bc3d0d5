// Package planread обрабатывает получение тарифного плана по идентификатору.
package planread

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/tradeboard/billing-service/internal/http/response"
	"github.com/tradeboard/billing-service/internal/lib/sl"
	"github.com/tradeboard/billing-service/internal/models"
	"github.com/tradeboard/billing-service/internal/storage/repository"
)

// Service определяет интерфейс каталога тарифных планов.
type Service interface {
	GetPlan(ctx context.Context, planID string) (*models.Plan, error)
}

// Handler обрабатывает запросы плана по идентификатору.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить тарифный план
// @Description Возвращает активный тарифный план по идентификатору
// @Tags Plans
// @Produce  json
// @Param id path string true "Идентификатор плана"
// @Success 200 {object} response.Response "Тарифный план"
// @Failure 404 {object} response.ErrorResponse "План не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /plans/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.planread"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	planID := chi.URLParam(r, "id")

	plan, err := h.service.GetPlan(r.Context(), planID)
	if err != nil {
		if errors.Is(err, repository.ErrPlanNotFound) {
			log.Info("plan not found", slog.String("plan_id", planID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("plan not found"))
			return
		}
		log.Error("failed to get plan", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to get plan"))
		return
	}

	render.JSON(w, r, response.OKWithData(plan))
}
