// Package health реализует HTTP-обработчик проверки живости сервиса.
package health

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/http/response"
)

// Handler отвечает на проверки живости.
type Handler struct{}

// New создает новый Handler.
func New() *Handler {
	return &Handler{}
}

// ServeHTTP godoc
// @Summary Проверка живости
// @Description Возвращает OK, если сервис принимает запросы.
// @Tags Health
// @Produce  json
// @Success 200 {object} response.Response "Сервис жив"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"alive": true,
	}))
}
