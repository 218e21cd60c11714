package models

import "time"

// Статусы счёта.
const (
	InvoiceStatusUnpaid = "unpaid"
	InvoiceStatusPaid   = "paid"
)

// Invoice счёт на оплату подписки. Для платного тарифа создаётся вместе
// с подпиской, чтобы подтверждению платежа было что помечать оплаченным.
type Invoice struct {
	ID             int64
	UserUID        string
	SubscriptionID int64
	Amount         int
	Currency       string
	Status         string
	CreatedAt      time.Time
	PaidAt         *time.Time
}
