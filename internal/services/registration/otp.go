package registration

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/apperr"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// SMSSender отправляет OTP-код. Провайдер best-effort: его отказ не отменяет
// уже созданную запись проверки, потому что часть провайдеров возвращает
// ошибку и при успешной доставке.
type SMSSender interface {
	SendOTP(ctx context.Context, phone, code, appName string) (delivered bool, message string, err error)
}

// OTPRequestResult итог запроса кода: запись создана всегда, доставка —
// отдельный факт, который отдаётся вызывающему как есть.
type OTPRequestResult struct {
	ExpiresAt       time.Time
	Delivered       bool
	ProviderMessage string
}

// phoneLimiters ограничивает частоту запросов кода по каждому номеру.
type phoneLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newPhoneLimiters() *phoneLimiters {
	return &phoneLimiters{limiters: make(map[string]*rate.Limiter)}
}

func (p *phoneLimiters) allow(phone string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	lim, ok := p.limiters[phone]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute), 1)
		p.limiters[phone] = lim
	}
	return lim.Allow()
}

// generateOTPCode возвращает шестизначный код.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// RequestOTP создаёт новый код для телефона. Прежние неподтверждённые коды
// этого номера удаляются: на номер живёт не больше одного кода.
func (s *Service) RequestOTP(ctx context.Context, phone string) (*OTPRequestResult, error) {
	if !s.limiters.allow(phone) {
		return nil, apperr.Wrap(apperr.ErrConflict, "OTP was requested too recently, try again later")
	}

	code, err := generateOTPCode()
	if err != nil {
		return nil, fmt.Errorf("generate otp code: %w", err)
	}

	expiresAt := time.Now().UTC().Add(s.otpTTL)
	_, err = s.repo.CreateVerification(ctx, models.PhoneVerification{
		Phone:     phone,
		OTPCode:   code,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create verification: %w", err)
	}
	s.log.Info("otp code issued", slog.String("phone", phone))

	result := &OTPRequestResult{ExpiresAt: expiresAt}
	delivered, message, err := s.sms.SendOTP(ctx, phone, code, s.appName)
	if err != nil {
		// Запись проверки уже создана, доставка могла пройти несмотря
		// на ошибку провайдера.
		s.log.Error("sms provider reported failure", sl.Err(err))
		result.ProviderMessage = "delivery unconfirmed"
		return result, nil
	}
	result.Delivered = delivered
	result.ProviderMessage = message
	return result, nil
}

// VerifyOTP проверяет код. Закрывается при несовпадении, истечении срока
// и исчерпанных попытках; каждая неудачная проверка увеличивает счётчик.
// После трёх неудач любая проверка этой записи отвечает конфликтом,
// даже с правильным кодом.
func (s *Service) VerifyOTP(ctx context.Context, phone, code string) (bool, error) {
	v, err := s.repo.GetActiveVerification(ctx, phone)
	if err != nil {
		return false, fmt.Errorf("load verification: %w", err)
	}
	if v == nil {
		return false, apperr.Wrap(apperr.ErrNotFound, "no pending verification for this phone")
	}
	if v.Attempts >= models.MaxOTPAttempts {
		return false, apperr.Wrap(apperr.ErrConflict, "verification attempts exhausted, request a new code")
	}

	count, err := s.repo.MarkVerified(ctx, v.ID, code)
	if err != nil {
		return false, fmt.Errorf("mark verified: %w", err)
	}
	if count > 0 {
		s.log.Info("phone verified", slog.String("phone", phone))
		return true, nil
	}

	if _, err := s.repo.IncrementAttempts(ctx, v.ID); err != nil {
		s.log.Error("failed to increment otp attempts", sl.Err(err))
	}
	if time.Now().UTC().After(v.ExpiresAt) {
		return false, apperr.Wrap(apperr.ErrValidation, "code has expired, request a new one")
	}
	return false, apperr.Wrap(apperr.ErrValidation, "code does not match")
}
