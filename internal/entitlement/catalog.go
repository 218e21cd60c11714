// Package entitlement решает, какие разделы и лимиты доступны подписке.
//
// Каталог — закрытый набор ключей разделов и лимитов, разрешаемых через
// явное соответствие "уровень тарифа -> набор ключей". Никакого сопоставления
// по подстрокам в названиях фич: добавление раздела в систему по умолчанию
// делает его платным, пока он явно не внесён в allow-list бесплатного уровня.
package entitlement

import (
	"fmt"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// Ключи разделов продукта.
const (
	SectionDashboard    = "dashboard"
	SectionProducts     = "products"
	SectionOrders       = "orders"
	SectionReceivables  = "receivables"
	SectionPayables     = "payables"
	SectionReports      = "reports"
	SectionShipments    = "shipments"
	SectionTeam         = "team"
	SectionIntegrations = "integrations"
)

// Ключи числовых лимитов. Значение -1 означает "без ограничений".
const (
	LimitProducts       = "products"
	LimitOrdersPerMonth = "orders_per_month"
	LimitTeamMembers    = "team_members"
	LimitBrands         = "brands"
)

// Unlimited значение лимита без ограничений.
const Unlimited = -1

// AllSections полный закрытый перечень разделов.
var AllSections = []string{
	SectionDashboard, SectionProducts, SectionOrders, SectionReceivables,
	SectionPayables, SectionReports, SectionShipments, SectionTeam,
	SectionIntegrations,
}

// freeAllowed — allow-list бесплатного уровня: узкий перечисленный набор.
var freeAllowed = map[string]bool{
	SectionDashboard: true,
	SectionProducts:  true,
	SectionOrders:    true,
}

// paidLocked — deny-list платных уровней: перечислены только закрытые разделы.
// Асимметрия с freeAllowed намеренная: платные уровни широкие, и новый раздел
// для них открыт по умолчанию.
var paidLocked = map[string]map[string]bool{
	models.TierGrowth: {
		SectionShipments:    true,
		SectionIntegrations: true,
	},
	models.TierScale: {},
}

// defaultLimits лимиты по умолчанию для каждого уровня. Тариф может
// переопределить любой из них через свой набор фич.
var defaultLimits = map[string]map[string]int{
	models.TierFree: {
		LimitProducts:       25,
		LimitOrdersPerMonth: 100,
		LimitTeamMembers:    1,
		LimitBrands:         1,
	},
	models.TierGrowth: {
		LimitProducts:       1000,
		LimitOrdersPerMonth: 5000,
		LimitTeamMembers:    5,
		LimitBrands:         3,
	},
	models.TierScale: {
		LimitProducts:       Unlimited,
		LimitOrdersPerMonth: Unlimited,
		LimitTeamMembers:    25,
		LimitBrands:         Unlimited,
	},
}

// lockMessages сообщения для закрытых разделов.
var lockMessages = map[string]string{
	models.TierFree:   "upgrade your plan to unlock this section",
	models.TierGrowth: "this section is available on the Scale plan",
}

// ValidTier сообщает, известен ли каталогу уровень тарифа.
func ValidTier(tier string) bool {
	_, ok := defaultLimits[tier]
	return ok
}

// ValidSection сообщает, известен ли каталогу ключ раздела.
func ValidSection(key string) bool {
	for _, s := range AllSections {
		if s == key {
			return true
		}
	}
	return false
}

// ValidatePlan проверяет ссылку на тариф перед переходом состояния подписки.
func ValidatePlan(plan *models.Plan) error {
	if plan == nil {
		return fmt.Errorf("plan is nil")
	}
	if !ValidTier(plan.Tier) {
		return fmt.Errorf("unknown plan tier: %s", plan.Tier)
	}
	return nil
}

// tierSectionAccess отвечает на вопрос о доступе уровня tier к разделу key.
func tierSectionAccess(tier, key string) bool {
	if !ValidSection(key) {
		return false
	}
	if tier == models.TierFree {
		return freeAllowed[key]
	}
	locked, ok := paidLocked[tier]
	if !ok {
		return false
	}
	return !locked[key]
}
