// Package apperr определяет классы ошибок уровня приложения.
// Ошибки сравниваются через errors.Is, хендлеры переводят их в HTTP-статусы,
// а планировщик по ErrTransientStorage пропускает тик до следующего запуска.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation некорректные или неполные входные данные.
	ErrValidation = errors.New("validation error")
	// ErrConflict конфликт состояния: занятый email, исчерпанные попытки OTP и т.п.
	ErrConflict = errors.New("conflict")
	// ErrNotFound неизвестный план, подписка или обязательство.
	ErrNotFound = errors.New("not found")
	// ErrExternalService сбой внешнего провайдера (SMS, платёжный шлюз).
	ErrExternalService = errors.New("external service error")
	// ErrTransientStorage временная ошибка хранилища, повтор на следующем тике.
	ErrTransientStorage = errors.New("transient storage error")
)

// Wrap оборачивает базовую ошибку класса kind с человекочитаемым сообщением.
func Wrap(kind error, msg string) error {
	return fmt.Errorf("%w: %s", kind, msg)
}

// Wrapf оборачивает базовую ошибку класса kind, сохраняя причину в цепочке.
func Wrapf(kind error, msg string, cause error) error {
	return fmt.Errorf("%w: %s: %w", kind, msg, cause)
}

// HTTPStatus возвращает HTTP-статус, соответствующий классу ошибки.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrExternalService):
		return http.StatusBadGateway
	case errors.Is(err, ErrTransientStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
