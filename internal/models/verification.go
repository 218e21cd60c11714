package models

import "time"

// MaxOTPAttempts предел попыток проверки одного кода. После третьей
// неудачи любая проверка этой записи завершается ошибкой конфликта.
const MaxOTPAttempts = 3

// PhoneVerification эфемерная запись OTP-проверки телефона. При запросе
// нового кода прежние неподтверждённые записи для того же номера удаляются.
type PhoneVerification struct {
	ID        int64
	Phone     string
	OTPCode   string
	ExpiresAt time.Time
	Attempts  int
	Verified  bool
}
