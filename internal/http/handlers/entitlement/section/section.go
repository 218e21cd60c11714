// Package section реализует HTTP-обработчик проверки доступа к разделу.
//
// Handler извлекает ключ раздела из URL, разрешает доступ по свежему
// снимку подписки пользователя и возвращает вердикт. При отказе в ответ
// добавляется текст блокировки для интерфейса.
package section

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

// Handler управляет HTTP-запросами на проверку доступа к разделу.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис проверки прав
}

// Service описывает интерфейс проверки доступа.
type Service interface {
	CheckSectionAccess(ctx context.Context, userUID, sectionKey string) bool
	LockMessage(ctx context.Context, userUID, sectionKey string) string
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Проверить доступ к разделу
// @Description Разрешает доступ к разделу по текущему тарифу пользователя. Неизвестный ключ — отказ.
// @Tags Entitlements
// @Produce  json
// @Param key path string true "Ключ раздела"
// @Success 200 {object} map[string]any "Вердикт доступа"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Неизвестный ключ раздела"
// @Security BearerAuth
// @Router /entitlements/sections/{key} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.section"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	key := chi.URLParam(r, "key")
	if !entitlement.ValidSection(key) {
		log.Error("unknown section key", slog.String("key", key))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("unknown section key"))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	allowed := h.service.CheckSectionAccess(r.Context(), userUID, key)
	data := map[string]any{
		"section": key,
		"allowed": allowed,
	}
	if !allowed {
		data["lock_message"] = h.service.LockMessage(r.Context(), userUID, key)
	}

	log.Info("section access resolved", slog.String("key", key), slog.Bool("allowed", allowed))
	render.JSON(w, r, response.StatusOKWithData(data))
}
