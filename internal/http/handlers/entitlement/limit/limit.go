// Package limit реализует HTTP-обработчик чтения лимита тарифа.
package limit

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/entitlement"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/http/response"
)

// Handler управляет HTTP-запросами на чтение лимита тарифа.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис проверки прав
}

// Service описывает интерфейс чтения лимитов.
type Service interface {
	GetPlanLimit(ctx context.Context, userUID, limitKey string) int
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить лимит тарифа
// @Description Возвращает числовой лимит для ключа. Значение -1 означает безлимит.
// @Tags Entitlements
// @Produce  json
// @Param key path string true "Ключ лимита"
// @Success 200 {object} map[string]any "Значение лимита"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Security BearerAuth
// @Router /entitlements/limits/{key} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.limit"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	key := chi.URLParam(r, "key")

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	value := h.service.GetPlanLimit(r.Context(), userUID, key)

	log.Info("plan limit resolved", slog.String("key", key), slog.Int("value", value))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"limit_key": key,
		"value":     value,
		"unlimited": value == entitlement.Unlimited,
	}))
}
