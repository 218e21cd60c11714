package models

import "time"

// Типы уведомлений о пробном периоде.
const (
	NotificationTrialEnding  = "trial_ending"
	NotificationTrialExpired = "trial_expired"
)

// TrialNotification уведомление о пробном периоде. Записи только добавляются,
// единственная мутация — отметка о прочтении.
type TrialNotification struct {
	ID             int64     `json:"id"`
	UserUID        string    `json:"user_uid"`
	SubscriptionID int64     `json:"subscription_id"`
	Type           string    `json:"type"`
	Message        string    `json:"message"`
	IsRead         bool      `json:"is_read"`
	SentAt         time.Time `json:"sent_at"`
}
