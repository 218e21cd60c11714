// Package registration реализует многошаговую регистрацию с OTP-подтверждением
// телефона и атомарным созданием пользователя, бренда и подписки.
//
// Каждый шаг перепроверяет кросс-шаговые инварианты заново (тариф всё ещё
// активен, email всё ещё свободен): между шагами проходит время, и доверять
// прошлым ответам нельзя.
package registration

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/apperr"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/password"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/paymentprovider"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/storage/repository"
)

// Repository определяет методы хранилища для регистрации.
type Repository interface {
	GetPlan(ctx context.Context, planUID string) (*models.Plan, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	BrandNameTaken(ctx context.Context, name string) (bool, error)
	HasVerifiedPhone(ctx context.Context, phone string) (bool, error)
	CreateRegistrationBundle(ctx context.Context, b repository.RegistrationBundle) (*repository.RegistrationBundle, error)
	CreateVerification(ctx context.Context, v models.PhoneVerification) (int64, error)
	GetActiveVerification(ctx context.Context, phone string) (*models.PhoneVerification, error)
	MarkVerified(ctx context.Context, id int64, code string) (int, error)
	IncrementAttempts(ctx context.Context, id int64) (int, error)
}

// PaymentInitializer инициализирует платёж по выставленному счёту.
type PaymentInitializer interface {
	InitializePayment(req paymentprovider.InitPaymentRequest) (*paymentprovider.InitPaymentResponse, error)
}

// Service оркестрирует шаги регистрации.
type Service struct {
	repo     Repository
	sms      SMSSender
	payments PaymentInitializer
	limiters *phoneLimiters
	otpTTL   time.Duration
	appName  string
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, sms SMSSender, payments PaymentInitializer, otpTTL time.Duration, appName string, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		sms:      sms,
		payments: payments,
		limiters: newPhoneLimiters(),
		otpTTL:   otpTTL,
		appName:  appName,
		log:      log,
	}
}

// CompleteResult итог завершённой регистрации. PaymentRedirectURL заполнен
// только для платного тарифа и только если шлюз ответил.
type CompleteResult struct {
	Bundle             *repository.RegistrationBundle
	PaymentRedirectURL string
}

func stepErr(step int, msg string) error {
	return apperr.Wrap(apperr.ErrValidation, fmt.Sprintf("step %d: %s", step, msg))
}

func stepConflict(step int, msg string) error {
	return apperr.Wrap(apperr.ErrConflict, fmt.Sprintf("step %d: %s", step, msg))
}

// ValidateStep проверяет черновик регистрации до шага step включительно.
// Шаги кумулятивны: повторная проверка шага 3 после смены ответа на шаге 2
// прогоняет и проверки шага 2 заново.
func (s *Service) ValidateStep(ctx context.Context, step int, draft models.RegistrationDraft) error {
	if step < models.StepPlan || step > models.StepPaymentPhone {
		return apperr.Wrap(apperr.ErrValidation, "unknown registration step")
	}

	plan, err := s.repo.GetPlan(ctx, draft.PlanUID)
	if err != nil {
		return stepErr(models.StepPlan, "unknown plan")
	}
	if !plan.IsActive {
		return stepErr(models.StepPlan, "plan is no longer available")
	}
	if step == models.StepPlan {
		return nil
	}

	if draft.Email == "" || draft.Username == "" || draft.Password == "" {
		return stepErr(models.StepIdentity, "email, username and password are required")
	}
	taken, err := s.repo.EmailTaken(ctx, draft.Email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return stepConflict(models.StepIdentity, "email is already taken")
	}
	taken, err = s.repo.UsernameTaken(ctx, draft.Username)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if taken {
		return stepConflict(models.StepIdentity, "username is already taken")
	}
	if step == models.StepIdentity {
		return nil
	}

	if draft.BrandName == "" {
		return stepErr(models.StepBrand, "brand name is required")
	}
	taken, err = s.repo.BrandNameTaken(ctx, draft.BrandName)
	if err != nil {
		return fmt.Errorf("check brand name: %w", err)
	}
	if taken {
		return stepConflict(models.StepBrand, "brand name is already taken")
	}
	if step == models.StepBrand {
		return nil
	}

	if draft.Phone == "" {
		return stepErr(models.StepPaymentPhone, "phone is required")
	}
	return nil
}

// Complete выполняет финальный шаг: требует подтверждённый телефон и создаёт
// пользователя, бренд, членство владельца, подписку и счёт одной транзакцией.
// Статус подписки следует политике тарифа: платный тариф с пробными днями
// даёт trialing, иначе подписка сразу active. Для платного тарифа после
// коммита инициализируется платёж; отказ шлюза регистрацию не откатывает.
func (s *Service) Complete(ctx context.Context, draft models.RegistrationDraft) (*CompleteResult, error) {
	if err := s.ValidateStep(ctx, models.StepPaymentPhone, draft); err != nil {
		return nil, err
	}

	verified, err := s.repo.HasVerifiedPhone(ctx, draft.Phone)
	if err != nil {
		return nil, fmt.Errorf("check phone verification: %w", err)
	}
	if !verified {
		return nil, apperr.Wrap(apperr.ErrConflict, "phone is not verified")
	}

	plan, err := s.repo.GetPlan(ctx, draft.PlanUID)
	if err != nil {
		return nil, stepErr(models.StepPlan, "unknown plan")
	}

	hashed, err := password.GetHash(draft.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	sub := models.Subscription{
		PlanUID: plan.UID,
	}
	if plan.IsPaid() && plan.TrialDays > 0 {
		trialEnd := now.AddDate(0, 0, plan.TrialDays)
		sub.Status = models.SubStatusTrialing
		sub.IsTrialActive = true
		sub.TrialStart = &now
		sub.TrialEnd = &trialEnd
	} else {
		sub.Status = models.SubStatusActive
		sub.CurrentPeriodStart = &now
	}

	bundle := repository.RegistrationBundle{
		User: models.User{
			UID:          uuid.New().String(),
			Email:        draft.Email,
			Username:     draft.Username,
			PasswordHash: hashed,
			Role:         "user",
			Phone:        draft.Phone,
		},
		Brand: models.Brand{
			UID:  uuid.New().String(),
			Name: draft.BrandName,
		},
		Subscription: sub,
	}
	if plan.IsPaid() {
		bundle.Invoice = &models.Invoice{
			Amount:   plan.MonthlyPrice,
			Currency: "RUB",
		}
	}

	created, err := s.repo.CreateRegistrationBundle(ctx, bundle)
	if err != nil {
		return nil, fmt.Errorf("create registration bundle: %w", err)
	}
	s.log.Info("registration completed",
		slog.String("user_uid", created.User.UID),
		slog.String("brand_uid", created.Brand.UID),
		slog.String("subscription_status", created.Subscription.Status))

	result := &CompleteResult{Bundle: created}
	if created.Invoice != nil {
		initResp, err := s.payments.InitializePayment(paymentprovider.InitPaymentRequest{
			OrderID:  strconv.FormatInt(created.Invoice.ID, 10),
			Amount:   created.Invoice.Amount,
			Currency: created.Invoice.Currency,
		})
		if err != nil {
			s.log.Error("failed to initialize payment", sl.Err(err),
				slog.Int64("invoice_id", created.Invoice.ID))
			return result, nil
		}
		result.PaymentRedirectURL = initResp.RedirectURL
	}
	return result, nil
}
