// Package models содержит доменные структуры тарифов, подписок, обязательств
// и вспомогательные типы для приёма данных из JSON-запросов.
package models

// Тарифные уровни платформы. Набор закрытый: каталог доступов
// и таблица лимитов ссылаются только на эти значения.
const (
	TierFree   = "free"
	TierGrowth = "growth"
	TierScale  = "scale"
)

// PlanFeatures хранится в колонке features (JSONB) и позволяет конкретному
// тарифу переопределять лимиты по умолчанию без изменения кода.
type PlanFeatures struct {
	Sections []string       `json:"sections,omitempty"`
	Limits   map[string]int `json:"limits,omitempty"`
}

// Plan представляет тариф. Справочные данные: создаются администратором
// (миграцией-сидом) и никогда не изменяются движком.
type Plan struct {
	UID          string
	Name         string
	Tier         string
	MonthlyPrice int
	YearlyPrice  int
	TrialDays    int
	Features     PlanFeatures
	IsActive     bool
}

// IsPaid сообщает, платный ли тариф.
func (p *Plan) IsPaid() bool {
	return p.Tier != TierFree
}
