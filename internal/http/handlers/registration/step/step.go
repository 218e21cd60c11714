// Package step реализует HTTP-обработчик проверки шага регистрации.
//
// Handler принимает номер шага из URL и накопленный черновик регистрации,
// прогоняет кумулятивную валидацию до этого шага включительно и возвращает
// вердикт. Черновик нигде не сохраняется: каждый вызов перепроверяет
// кросс-шаговые инварианты заново.
package step

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

// Handler управляет HTTP-запросами на проверку шага регистрации.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики регистрации
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики проверки шага.
type Service interface {
	ValidateStep(ctx context.Context, step int, draft models.RegistrationDraft) error
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
// @Summary Проверить шаг регистрации
// @Description Прогоняет кумулятивную валидацию черновика регистрации до шага n включительно.
// @Tags Registration
// @Accept  json
// @Produce  json
// @Param n path int true "Номер шага (1-4)"
// @Param request body models.RegistrationDraft true "Черновик регистрации"
// @Success 200 {object} map[string]any "Шаг пройден"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или номер шага"
// @Failure 409 {object} response.ErrorResponse "Конфликт: email, имя или бренд заняты"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /register/steps/{n} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.registration.step"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	step, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || step < models.StepPlan || step > models.StepPaymentPhone {
		log.Error("invalid step number in url")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid step number"))
		return
	}

	var draft models.RegistrationDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(draft); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.service.ValidateStep(r.Context(), step, draft); err != nil {
		log.Error("step validation failed", slog.Int("step", step), sl.Err(err))
		status := apperr.HTTPStatus(err)
		w.WriteHeader(status)
		if status == http.StatusInternalServerError {
			render.JSON(w, r, response.Error("could not validate step"))
			return
		}
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("step validated", slog.Int("step", step))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"step":  step,
		"valid": true,
	}))
}
