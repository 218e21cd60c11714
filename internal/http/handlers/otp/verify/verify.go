// Package verify реализует HTTP-обработчик проверки OTP-кода.
package verify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/apperr"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/http/response"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// Handler управляет HTTP-запросами на проверку OTP-кода.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики OTP
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики проверки OTP.
type Service interface {
	VerifyOTP(ctx context.Context, phone, code string) (bool, error)
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
// @Summary Проверить OTP-код
// @Description Сверяет код с активной верификацией телефона. После трёх неверных попыток код сгорает.
// @Tags OTP
// @Accept  json
// @Produce  json
// @Param request body models.DummyOTPVerify true "Телефон и код"
// @Success 200 {object} map[string]any "Телефон подтверждён"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Активная верификация не найдена"
// @Failure 409 {object} response.ErrorResponse "Попытки исчерпаны"
// @Failure 422 {object} response.ErrorResponse "Неверный или просроченный код"
// @Router /otp/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.otp.verify"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyOTPVerify
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

	verified, err := h.service.VerifyOTP(r.Context(), req.Phone, req.Code)
	if err != nil {
		log.Error("failed to verify otp", sl.Err(err))
		status := apperr.HTTPStatus(err)
		w.WriteHeader(status)
		if status == http.StatusInternalServerError {
			render.JSON(w, r, response.Error("could not verify otp"))
			return
		}
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("phone verified")
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"verified": verified,
	}))
}
