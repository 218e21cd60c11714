// Package request реализует HTTP-обработчик запроса OTP-кода на телефон.
package request

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
	"github.com/magabrotheeeer/billing-gatekeeper/internal/services/registration"
)

// Handler управляет HTTP-запросами на отправку OTP-кода.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики OTP
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики запроса OTP.
type Service interface {
	RequestOTP(ctx context.Context, phone string) (*registration.OTPRequestResult, error)
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
// @Summary Запросить OTP-код
// @Description Генерирует код подтверждения и отправляет его на телефон через SMS-шлюз.
// @Tags OTP
// @Accept  json
// @Produce  json
// @Param request body models.DummyOTPRequest true "Телефон"
// @Success 200 {object} map[string]any "Код отправлен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Слишком частые запросы кода"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /otp/request [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.otp.request"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyOTPRequest
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

	res, err := h.service.RequestOTP(r.Context(), req.Phone)
	if err != nil {
		log.Error("failed to request otp", sl.Err(err))
		status := apperr.HTTPStatus(err)
		w.WriteHeader(status)
		if status == http.StatusInternalServerError {
			render.JSON(w, r, response.Error("could not request otp"))
			return
		}
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("otp requested", slog.Bool("delivered", res.Delivered))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"expires_at": res.ExpiresAt,
		"delivered":  res.Delivered,
		"message":    res.ProviderMessage,
	}))
}
