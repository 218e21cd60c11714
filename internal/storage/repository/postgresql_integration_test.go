package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

func TestStorage_ConfirmPayment(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	verification := NewTestVerification(storage)

	periodStart := time.Now().UTC()
	periodEnd := periodStart.AddDate(0, 1, 0)

	t.Run("оплата переводит пробную подписку в active", func(t *testing.T) {
		userUID := uuid.New().String()
		factory.CreateUser(t, userUID, "payer", "payer@example.com", "hashedpassword", "user", "+79000000001")
		planUID := factory.PlanUIDByTier(t, "growth")
		subID := factory.CreateTrialSubscription(t, userUID, planUID, time.Now().UTC().AddDate(0, 0, 7))

		rows, err := storage.ConfirmPayment(context.Background(), userUID, periodStart, periodEnd)
		require.NoError(t, err)
		assert.Equal(t, 1, rows)
		verification.VerifySubscriptionStatus(t, subID, "active")

		sub, err := storage.GetSubscriptionByUser(context.Background(), userUID)
		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.False(t, sub.IsTrialActive)
		assert.Nil(t, sub.TrialEnd)
	})

	t.Run("отмененная подписка не оживает от оплаты", func(t *testing.T) {
		userUID := uuid.New().String()
		factory.CreateUser(t, userUID, "quitter", "quitter@example.com", "hashedpassword", "user", "+79000000002")
		planUID := factory.PlanUIDByTier(t, "growth")
		factory.CreateCanceledSubscription(t, userUID, planUID)

		rows, err := storage.ConfirmPayment(context.Background(), userUID, periodStart, periodEnd)
		require.NoError(t, err)
		assert.Equal(t, 0, rows)
	})
}

func TestStorage_ExpireTrial(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)

	now := time.Now().UTC()

	t.Run("повторное применение по той же подписке затрагивает ноль строк", func(t *testing.T) {
		userUID := uuid.New().String()
		factory.CreateUser(t, userUID, "expired", "expired@example.com", "hashedpassword", "user", "+79000000003")
		growthUID := factory.PlanUIDByTier(t, "growth")
		freeUID := factory.PlanUIDByTier(t, "free")
		subID := factory.CreateTrialSubscription(t, userUID, growthUID, now.AddDate(0, 0, -1))

		rows, err := storage.ExpireTrial(context.Background(), subID, freeUID, now)
		require.NoError(t, err)
		assert.Equal(t, 1, rows)

		rows, err = storage.ExpireTrial(context.Background(), subID, freeUID, now)
		require.NoError(t, err)
		assert.Equal(t, 0, rows)

		sub, err := storage.GetSubscriptionByUser(context.Background(), userUID)
		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.Equal(t, freeUID, sub.PlanUID)
		assert.NotNil(t, sub.DowngradedAt)
	})

	t.Run("не истекший пробный период не трогается", func(t *testing.T) {
		userUID := uuid.New().String()
		factory.CreateUser(t, userUID, "fresh", "fresh@example.com", "hashedpassword", "user", "+79000000004")
		growthUID := factory.PlanUIDByTier(t, "growth")
		freeUID := factory.PlanUIDByTier(t, "free")
		subID := factory.CreateTrialSubscription(t, userUID, growthUID, now.AddDate(0, 0, 7))

		rows, err := storage.ExpireTrial(context.Background(), subID, freeUID, now)
		require.NoError(t, err)
		assert.Equal(t, 0, rows)
	})
}

func TestStorage_ExtendTrial(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)

	t.Run("продление сдвигает срок и сбрасывает флаг уведомления", func(t *testing.T) {
		userUID := uuid.New().String()
		factory.CreateUser(t, userUID, "extended", "extended@example.com", "hashedpassword", "user", "+79000000005")
		planUID := factory.PlanUIDByTier(t, "growth")
		trialEnd := time.Now().UTC().AddDate(0, 0, 2)
		subID := factory.CreateTrialSubscription(t, userUID, planUID, trialEnd)

		_, err := storage.DB.Exec(`UPDATE subscriptions SET trial_notification_sent = TRUE WHERE id = $1`, subID)
		require.NoError(t, err)

		rows, err := storage.ExtendTrial(context.Background(), subID, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, rows)

		var newEnd time.Time
		var notified bool
		err = storage.DB.QueryRow(`SELECT trial_end, trial_notification_sent FROM subscriptions WHERE id = $1`, subID).
			Scan(&newEnd, &notified)
		require.NoError(t, err)
		assert.False(t, notified)
		// Сравниваем даты с точностью до дня
		wantEnd := trialEnd.AddDate(0, 0, 3)
		assert.Equal(t, wantEnd.Year(), newEnd.Year())
		assert.Equal(t, wantEnd.Month(), newEnd.Month())
		assert.Equal(t, wantEnd.Day(), newEnd.Day())
	})

	t.Run("подписка без пробного периода не продлевается", func(t *testing.T) {
		userUID := uuid.New().String()
		factory.CreateUser(t, userUID, "notrial", "notrial@example.com", "hashedpassword", "user", "+79000000006")
		planUID := factory.PlanUIDByTier(t, "free")
		subID := factory.CreateActiveSubscription(t, userUID, planUID)

		rows, err := storage.ExtendTrial(context.Background(), subID, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, rows)
	})
}

func TestStorage_TrialExpiredNotificationExactlyOnce(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)

	now := time.Now().UTC()
	userUID := uuid.New().String()
	factory.CreateUser(t, userUID, "racer", "racer@example.com", "hashedpassword", "user", "+79000000008")
	growthUID := factory.PlanUIDByTier(t, "growth")
	freeUID := factory.PlanUIDByTier(t, "free")
	subID := factory.CreateTrialSubscription(t, userUID, growthUID, now.AddDate(0, 0, -1))

	// Два конкурирующих прогона: уведомление создаёт только победитель перехода.
	for range 2 {
		rows, err := storage.ExpireTrial(context.Background(), subID, freeUID, now)
		require.NoError(t, err)
		if rows == 0 {
			continue
		}
		_, err = storage.CreateTrialNotification(context.Background(), models.TrialNotification{
			UserUID:        userUID,
			SubscriptionID: subID,
			Type:           models.NotificationTrialExpired,
			Message:        "Your trial has ended. Your account was moved to the Free plan.",
		})
		require.NoError(t, err)
	}

	count, err := storage.CountTrialExpiredNotifications(context.Background(), subID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStorage_MarkTrialNotificationSent(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)

	userUID := uuid.New().String()
	factory.CreateUser(t, userUID, "notified", "notified@example.com", "hashedpassword", "user", "+79000000007")
	planUID := factory.PlanUIDByTier(t, "growth")
	subID := factory.CreateTrialSubscription(t, userUID, planUID, time.Now().UTC().AddDate(0, 0, 1))

	rows, err := storage.MarkTrialNotificationSent(context.Background(), subID)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)

	// Второй прогон по уже поднятому флагу проигрывает гонку.
	rows, err = storage.MarkTrialNotificationSent(context.Background(), subID)
	require.NoError(t, err)
	assert.Equal(t, 0, rows)
}

func TestStorage_ConvertObligation(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	verification := NewTestVerification(storage)

	now := time.Now().UTC()

	newObligation := func(t *testing.T, suffix string) *models.Obligation {
		userUID := uuid.New().String()
		brandUID := uuid.New().String()
		factory.CreateUser(t, userUID, "owner"+suffix, "owner"+suffix+"@example.com", "hashedpassword", "user", "+7900000"+suffix)
		factory.CreateBrand(t, brandUID, "brand-"+suffix, userUID)

		ob := models.Obligation{
			BrandUID:    brandUID,
			Kind:        "receivable",
			EntityName:  "ACME",
			Amount:      5000,
			DueDate:     now.AddDate(0, 0, -1),
			AutoConvert: true,
		}
		id, err := storage.CreateObligation(context.Background(), ob)
		require.NoError(t, err)
		ob.ID = id
		return &ob
	}

	t.Run("конвертация создает ровно одну проводку", func(t *testing.T) {
		ob := newObligation(t, "1001")

		rows, err := storage.ConvertObligation(context.Background(), ob, "income", now)
		require.NoError(t, err)
		assert.Equal(t, 1, rows)
		verification.VerifyObligationStatus(t, ob.ID, "converted")

		// Проигравший повтор не добавляет вторую проводку.
		rows, err = storage.ConvertObligation(context.Background(), ob, "income", now)
		require.NoError(t, err)
		assert.Equal(t, 0, rows)

		count, err := storage.CountLedgerEntriesForObligation(context.Background(), ob.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("оплаченное обязательство не конвертируется", func(t *testing.T) {
		ob := newObligation(t, "1002")

		rows, err := storage.MarkObligationPaid(context.Background(), ob.ID, ob.BrandUID)
		require.NoError(t, err)
		require.Equal(t, 1, rows)

		rows, err = storage.ConvertObligation(context.Background(), ob, "income", now)
		require.NoError(t, err)
		assert.Equal(t, 0, rows)

		count, err := storage.CountLedgerEntriesForObligation(context.Background(), ob.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("сконвертированная запись неизменяема для ручной оплаты", func(t *testing.T) {
		ob := newObligation(t, "1003")

		rows, err := storage.ConvertObligation(context.Background(), ob, "income", now)
		require.NoError(t, err)
		require.Equal(t, 1, rows)

		rows, err = storage.MarkObligationPaid(context.Background(), ob.ID, ob.BrandUID)
		require.NoError(t, err)
		assert.Equal(t, 0, rows)
		verification.VerifyObligationStatus(t, ob.ID, "converted")
	})

	t.Run("чужой бренд не может оплатить обязательство", func(t *testing.T) {
		ob := newObligation(t, "1004")

		rows, err := storage.MarkObligationPaid(context.Background(), ob.ID, uuid.New().String())
		require.NoError(t, err)
		assert.Equal(t, 0, rows)
		verification.VerifyObligationStatus(t, ob.ID, "current")
	})

	t.Run("статус стареет монотонно", func(t *testing.T) {
		ob := newObligation(t, "1005")

		rows, err := storage.AgeObligationStatus(context.Background(), ob.ID, "critical")
		require.NoError(t, err)
		assert.Equal(t, 1, rows)

		// Откат critical -> overdue запрещен предикатом.
		rows, err = storage.AgeObligationStatus(context.Background(), ob.ID, "overdue")
		require.NoError(t, err)
		assert.Equal(t, 0, rows)
		verification.VerifyObligationStatus(t, ob.ID, "critical")
	})
}

func TestStorage_VerificationGuards(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	expiresAt := time.Now().UTC().Add(5 * time.Minute)

	t.Run("новый код вытесняет прежний неподтвержденный", func(t *testing.T) {
		first, err := storage.CreateVerification(context.Background(), models.PhoneVerification{
			Phone: "+79001110001", OTPCode: "111111", ExpiresAt: expiresAt,
		})
		require.NoError(t, err)

		second, err := storage.CreateVerification(context.Background(), models.PhoneVerification{
			Phone: "+79001110001", OTPCode: "222222", ExpiresAt: expiresAt,
		})
		require.NoError(t, err)
		assert.NotEqual(t, first, second)

		active, err := storage.GetActiveVerification(context.Background(), "+79001110001")
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, second, active.ID)
		assert.Equal(t, "222222", active.OTPCode)
	})

	t.Run("неверный код не подтверждает запись", func(t *testing.T) {
		id, err := storage.CreateVerification(context.Background(), models.PhoneVerification{
			Phone: "+79001110002", OTPCode: "123456", ExpiresAt: expiresAt,
		})
		require.NoError(t, err)

		rows, err := storage.MarkVerified(context.Background(), id, "000000")
		require.NoError(t, err)
		assert.Equal(t, 0, rows)

		rows, err = storage.MarkVerified(context.Background(), id, "123456")
		require.NoError(t, err)
		assert.Equal(t, 1, rows)

		// Подтвержденная запись не подтверждается повторно.
		rows, err = storage.MarkVerified(context.Background(), id, "123456")
		require.NoError(t, err)
		assert.Equal(t, 0, rows)

		verified, err := storage.HasVerifiedPhone(context.Background(), "+79001110002")
		require.NoError(t, err)
		assert.True(t, verified)
	})

	t.Run("после трех попыток код сгорает даже правильный", func(t *testing.T) {
		id, err := storage.CreateVerification(context.Background(), models.PhoneVerification{
			Phone: "+79001110003", OTPCode: "123456", ExpiresAt: expiresAt,
		})
		require.NoError(t, err)

		for range 3 {
			rows, err := storage.IncrementAttempts(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, 1, rows)
		}

		// Четвертый инкремент упирается в предикат attempts < 3.
		rows, err := storage.IncrementAttempts(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, 0, rows)

		rows, err = storage.MarkVerified(context.Background(), id, "123456")
		require.NoError(t, err)
		assert.Equal(t, 0, rows)
	})

	t.Run("просроченный код не подтверждается", func(t *testing.T) {
		id, err := storage.CreateVerification(context.Background(), models.PhoneVerification{
			Phone: "+79001110004", OTPCode: "123456", ExpiresAt: time.Now().UTC().Add(-time.Minute),
		})
		require.NoError(t, err)

		rows, err := storage.MarkVerified(context.Background(), id, "123456")
		require.NoError(t, err)
		assert.Equal(t, 0, rows)
	})
}
