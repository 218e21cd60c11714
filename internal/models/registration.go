package models

// Номера шагов регистрации.
const (
	StepPlan = iota + 1
	StepIdentity
	StepBrand
	StepPaymentPhone
)

// RegistrationDraft накапливающий payload многошаговой регистрации.
// Живёт только в рамках клиентской сессии, в базу не пишется: каждый шаг
// перепроверяет кросс-шаговые инварианты заново, а не доверяет прошлым.
type RegistrationDraft struct {
	PlanUID   string `json:"plan_uid" validate:"required,uuid"`
	Email     string `json:"email" validate:"omitempty,email"`
	Username  string `json:"username" validate:"omitempty,alphanum"`
	Password  string `json:"password" validate:"omitempty,min=8"`
	BrandName string `json:"brand_name"`
	Phone     string `json:"phone" validate:"omitempty,min=10,max=16"`
}

// DummyOTPRequest запрос на отправку OTP-кода.
type DummyOTPRequest struct {
	Phone string `json:"phone" validate:"required,min=10,max=16"`
}

// DummyOTPVerify запрос на проверку OTP-кода.
type DummyOTPVerify struct {
	Phone string `json:"phone" validate:"required,min=10,max=16"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}
