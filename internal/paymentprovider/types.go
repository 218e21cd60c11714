// Package paymentprovider содержит клиент платёжного шлюза.
// Проверка подписи и формирование хэша — контракт шлюза, не часть ядра:
// клиент только инициализирует платёж и описывает payload коллбэка.
package paymentprovider

// InitPaymentRequest представляет запрос на инициализацию платежа.
type InitPaymentRequest struct {
	OrderID  string `json:"order_id"` // ID счёта на нашей стороне
	Amount   int    `json:"amount"`   // сумма в минорных единицах
	Currency string `json:"currency"` // валюта, например "RUB"
}

// InitPaymentResponse представляет ответ на инициализацию платежа.
type InitPaymentResponse struct {
	Hash        string `json:"hash"`         // подпись платежа, сформированная шлюзом
	RedirectURL string `json:"redirect_url"` // адрес платёжной страницы
}

// ConfirmPayload payload коллбэка шлюза о результате платежа.
// Шлюз знает только то, что получил при инициализации: order_id — это ID
// счёта на нашей стороне, владелец восстанавливается по нему.
type ConfirmPayload struct {
	OrderID       string `json:"order_id" validate:"required,numeric"`
	Status        string `json:"status" validate:"required"`
	TransactionID string `json:"transaction_id"`
}

// StatusSucceeded значение статуса успешного платежа в коллбэке.
const StatusSucceeded = "succeeded"
