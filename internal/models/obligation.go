package models

import "time"

// Виды обязательств.
const (
	ObligationReceivable = "receivable"
	ObligationPayable    = "payable"
)

// Статусы обязательства.
const (
	ObligationStatusCurrent   = "current"
	ObligationStatusOverdue   = "overdue"
	ObligationStatusCritical  = "critical"
	ObligationStatusPaid      = "paid"
	ObligationStatusConverted = "converted"
)

// Obligation дебиторское или кредиторское обязательство бренда.
//
// Инвариант: запись со статусом converted неизменяема — на неё ссылается
// проводка в книге, поэтому её нельзя ни изменить, ни удалить.
type Obligation struct {
	ID          int64     `json:"id"`
	BrandUID    string    `json:"brand_uid"`
	Kind        string    `json:"kind"`
	EntityName  string    `json:"entity_name"`
	Amount      int       `json:"amount"`
	DueDate     time.Time `json:"due_date"`
	Status      string    `json:"status"`
	AutoConvert bool      `json:"auto_convert"`
}

// Виды проводок.
const (
	LedgerRevenue = "revenue"
	LedgerCost    = "cost"
)

// LedgerEntry проводка, созданная из обязательства. Уникальный индекс по
// ObligationID в базе гарантирует ровно одну проводку на обязательство.
type LedgerEntry struct {
	ID           int64
	BrandUID     string
	ObligationID int64
	Kind         string
	Amount       int
	EntryDate    time.Time
}

// DummyObligation используется для приёма данных из JSON-запроса
// перед конвертацией в Obligation.
type DummyObligation struct {
	Kind        string `json:"kind" validate:"required,oneof=receivable payable"` // Вид: receivable или payable
	EntityName  string `json:"entity_name" validate:"required"`                   // Контрагент
	Amount      int    `json:"amount" validate:"required,gt=0"`                   // Сумма (>0)
	DueDate     string `json:"due_date" validate:"required"`                      // Срок в формате 02-01-2006
	AutoConvert bool   `json:"auto_convert"`                                      // Автоконвертация в проводку
}
