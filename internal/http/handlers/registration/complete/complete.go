// Package complete реализует HTTP-обработчик завершения регистрации.
//
// Handler перепроверяет весь черновик, атомарно создаёт пользователя,
// бренд, подписку и счёт (для платного тарифа) и возвращает JWT токен,
// чтобы клиент сразу оказался залогинен.
package complete

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
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/jwt"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/services/registration"
)

// Handler управляет HTTP-запросами на завершение регистрации.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики регистрации
	maker    jwt.Maker           // Генератор JWT для автологина после регистрации
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики завершения регистрации.
type Service interface {
	Complete(ctx context.Context, draft models.RegistrationDraft) (*registration.CompleteResult, error)
}

// New создает новый Handler с переданными логгером, сервисом и генератором токенов.
func New(log *slog.Logger, service Service, maker jwt.Maker) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		maker:    maker,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Завершить регистрацию
// @Description Перепроверяет весь черновик и атомарно создаёт пользователя, бренд, подписку и счёт.
// @Tags Registration
// @Accept  json
// @Produce  json
// @Param request body models.RegistrationDraft true "Полный черновик регистрации"
// @Success 200 {object} map[string]any "Созданные сущности и токен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Телефон не подтверждён или данные заняты"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при создании"
// @Router /register/complete [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.registration.complete"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	result, err := h.service.Complete(r.Context(), draft)
	if err != nil {
		log.Error("failed to complete registration", sl.Err(err))
		status := apperr.HTTPStatus(err)
		w.WriteHeader(status)
		if status == http.StatusInternalServerError {
			render.JSON(w, r, response.Error("could not complete registration"))
			return
		}
		render.JSON(w, r, response.Error(err.Error()))
		return
	}
	bundle := result.Bundle

	token, err := h.maker.GenerateToken(bundle.User.Username, bundle.User.Role, bundle.User.UID)
	if err != nil {
		log.Error("failed to sign token", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not sign token"))
		return
	}

	log.Info("success to complete registration",
		slog.String("user_uid", bundle.User.UID),
		slog.String("subscription_status", bundle.Subscription.Status))
	data := map[string]any{
		"user_uid":            bundle.User.UID,
		"brand_uid":           bundle.Brand.UID,
		"subscription_status": bundle.Subscription.Status,
		"token":               token,
	}
	if bundle.Invoice != nil {
		data["invoice_id"] = bundle.Invoice.ID
	}
	if result.PaymentRedirectURL != "" {
		data["payment_redirect_url"] = result.PaymentRedirectURL
	}
	render.JSON(w, r, response.StatusOKWithData(data))
}
