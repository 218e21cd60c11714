package entitlement

import (
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// Snapshot снимок подписки и её тарифа на момент проверки.
// Nil-поля означают отсутствие подписки и разрешаются в самый
// ограничительный ответ, а не в ошибку.
type Snapshot struct {
	Subscription *models.Subscription
	Plan         *models.Plan
}

// tier возвращает действующий уровень тарифа снимка или пустую строку,
// если действующей подписки нет.
func (s Snapshot) tier() string {
	if s.Subscription == nil || s.Plan == nil {
		return ""
	}
	if s.Subscription.Status == models.SubStatusCanceled {
		return ""
	}
	return s.Plan.Tier
}

// HasSectionAccess отвечает, доступен ли раздел key держателю снимка.
// Никогда не возвращает ошибку: отсутствие подписки означает отказ.
func HasSectionAccess(snapshot Snapshot, key string) bool {
	tier := snapshot.tier()
	if tier == "" {
		return false
	}
	return tierSectionAccess(tier, key)
}

// PlanLimit возвращает числовой лимит по ключу key, -1 означает
// "без ограничений". Лимит, заданный в наборе фич тарифа, имеет приоритет
// над таблицей по умолчанию, поэтому запись тарифа может переопределить
// лимит без изменения кода.
func PlanLimit(snapshot Snapshot, key string) int {
	tier := snapshot.tier()
	if tier == "" {
		return 0
	}
	if snapshot.Plan != nil {
		if v, ok := snapshot.Plan.Features.Limits[key]; ok {
			return v
		}
	}
	if v, ok := defaultLimits[tier][key]; ok {
		return v
	}
	return 0
}

// LockMessage возвращает текст для закрытого раздела. Для доступного
// раздела возвращается пустая строка.
func LockMessage(snapshot Snapshot, key string) string {
	if HasSectionAccess(snapshot, key) {
		return ""
	}
	tier := snapshot.tier()
	if tier == "" {
		return "subscription required"
	}
	if msg, ok := lockMessages[tier]; ok {
		return msg
	}
	return "this section is not available on your plan"
}
