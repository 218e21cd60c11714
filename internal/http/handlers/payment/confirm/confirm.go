// Package confirm реализует HTTP-обработчик колбэка платёжного шлюза.
//
// Handler принимает уведомление о результате платежа. Шлюз присылает
// order_id — ID счёта, выставленного при инициализации платежа; владелец
// подписки восстанавливается по счёту. Успешный платёж переводит подписку
// в active через охраняемый переход; любой другой статус подтверждается
// шлюзу без изменений в базе.
package confirm

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/apperr"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/http/response"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/paymentprovider"
)

// Handler управляет колбэками платёжного шлюза.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис машины состояний подписки
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс подтверждения платежа.
type Service interface {
	ConfirmPayment(ctx context.Context, invoiceID int64) error
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
// @Summary Колбэк платёжного шлюза
// @Description Обрабатывает уведомление о результате платежа. Успех активирует подписку владельца счёта из order_id.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body paymentprovider.ConfirmPayload true "Уведомление шлюза"
// @Success 200 {object} response.Response "Уведомление принято"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или order_id"
// @Failure 404 {object} response.ErrorResponse "Счёт не найден, подписка отсутствует или отменена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /payments/confirm [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.confirm"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var payload paymentprovider.ConfirmPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Error("failed to decode payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(payload); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if payload.Status != paymentprovider.StatusSucceeded {
		log.Info("ignoring non-success payment status",
			slog.String("order_id", payload.OrderID),
			slog.String("payment_status", payload.Status))
		render.JSON(w, r, response.StatusOKWithData(map[string]any{
			"ignored": true,
		}))
		return
	}

	invoiceID, err := strconv.ParseInt(payload.OrderID, 10, 64)
	if err != nil {
		log.Error("failed to parse order id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid order id"))
		return
	}

	if err := h.service.ConfirmPayment(r.Context(), invoiceID); err != nil {
		log.Error("failed to confirm payment", sl.Err(err))
		status := apperr.HTTPStatus(err)
		w.WriteHeader(status)
		if status == http.StatusInternalServerError {
			render.JSON(w, r, response.Error("could not confirm payment"))
			return
		}
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("payment confirmed",
		slog.String("order_id", payload.OrderID),
		slog.String("transaction_id", payload.TransactionID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"confirmed": true,
	}))
}
