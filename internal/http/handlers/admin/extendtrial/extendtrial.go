// Package extendtrial реализует административный HTTP-обработчик
// продления пробного периода подписки.
package extendtrial

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/apperr"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/http/response"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// Handler управляет административными запросами на продление триала.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис машины состояний подписки
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс продления пробного периода.
type Service interface {
	ExtendTrial(ctx context.Context, subID int64, days int) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Продлить пробный период
// @Description Сдвигает дату окончания активного триала и снова разрешает предупреждение об окончании.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param id path int true "ID подписки"
// @Param request body models.DummyExtendTrial true "Число дней"
// @Success 200 {object} response.Response "Триал продлён"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или ID"
// @Failure 404 {object} response.ErrorResponse "Активный триал не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Security BearerAuth
// @Router /admin/subscriptions/{id}/extend-trial [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.extendtrial"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return
	}

	var req models.DummyExtendTrial
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

	if err := h.service.ExtendTrial(r.Context(), id, req.Days); err != nil {
		log.Error("failed to extend trial", sl.Err(err))
		status := apperr.HTTPStatus(err)
		w.WriteHeader(status)
		if status == http.StatusInternalServerError {
			render.JSON(w, r, response.Error("could not extend trial"))
			return
		}
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("trial extended", slog.Int64("subscription_id", id), slog.Int("days", req.Days))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"extended_days": req.Days,
	}))
}
