package read

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/apperr"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/http/response"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/sl"
)

// Handler управляет HTTP-запросами на отметку уведомления прочитанным.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс отметки уведомления прочитанным.
type Service interface {
	MarkRead(ctx context.Context, id int64, userUID string) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Отметить уведомление прочитанным
// @Description Помечает уведомление пользователя прочитанным. Чужое уведомление недоступно.
// @Tags Notifications
// @Produce  json
// @Param id path int true "ID уведомления"
// @Success 200 {object} response.Response "Уведомление прочитано"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Уведомление не найдено"
// @Security BearerAuth
// @Router /notifications/{id}/read [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.read"
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

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.MarkRead(r.Context(), id, userUID); err != nil {
		log.Error("failed to mark notification read", sl.Err(err))
		status := apperr.HTTPStatus(err)
		w.WriteHeader(status)
		if status == http.StatusInternalServerError {
			render.JSON(w, r, response.Error("could not mark notification read"))
			return
		}
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("notification marked read", slog.Int64("id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"read": true,
	}))
}
