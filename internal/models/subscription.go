package models

import "time"

// Статусы подписки.
const (
	SubStatusTrialing = "trialing"
	SubStatusActive   = "active"
	SubStatusOverdue  = "overdue"
	SubStatusCanceled = "canceled"
)

// Subscription представляет подписку пользователя на тариф.
//
// Инварианты:
//   - IsTrialActive == true влечёт TrialEnd != nil;
//   - на пользователя существует не более одной не-отменённой подписки;
//   - запись никогда не удаляется физически, только замещается.
//
// TrialNotificationSent — флаг-предохранитель: именно он делает повторные
// прогоны уведомления "триал заканчивается" безопасными, это часть
// публичного контракта записи, а не деталь реализации.
type Subscription struct {
	ID                    int64
	UserUID               string
	PlanUID               string
	Status                string
	IsTrialActive         bool
	TrialStart            *time.Time
	TrialEnd              *time.Time
	CurrentPeriodStart    *time.Time
	CurrentPeriodEnd      *time.Time
	TrialNotificationSent bool
	CancelAtPeriodEnd     bool
	DowngradedAt          *time.Time
}

// DummyExtendTrial используется для приёма данных продления пробного
// периода из JSON-запроса администратора.
type DummyExtendTrial struct {
	Days int `json:"days" validate:"required,gt=0"` // Число дней продления
}
