package registration

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/apperr"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/paymentprovider"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/storage/repository"
)

// MockRepository реализует интерфейс registration.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetPlan(ctx context.Context, planUID string) (*models.Plan, error) {
	args := m.Called(ctx, planUID)
	plan, _ := args.Get(0).(*models.Plan)
	return plan, args.Error(1)
}

func (m *MockRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) BrandNameTaken(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) HasVerifiedPhone(ctx context.Context, phone string) (bool, error) {
	args := m.Called(ctx, phone)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) CreateRegistrationBundle(ctx context.Context, b repository.RegistrationBundle) (*repository.RegistrationBundle, error) {
	args := m.Called(ctx, b)
	bundle, _ := args.Get(0).(*repository.RegistrationBundle)
	return bundle, args.Error(1)
}

func (m *MockRepository) CreateVerification(ctx context.Context, v models.PhoneVerification) (int64, error) {
	args := m.Called(ctx, v)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) GetActiveVerification(ctx context.Context, phone string) (*models.PhoneVerification, error) {
	args := m.Called(ctx, phone)
	v, _ := args.Get(0).(*models.PhoneVerification)
	return v, args.Error(1)
}

func (m *MockRepository) MarkVerified(ctx context.Context, id int64, code string) (int, error) {
	args := m.Called(ctx, id, code)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) IncrementAttempts(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

// MockSMSSender реализует интерфейс registration.SMSSender
type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) SendOTP(ctx context.Context, phone, code, appName string) (bool, string, error) {
	args := m.Called(ctx, phone, code, appName)
	return args.Bool(0), args.String(1), args.Error(2)
}

// MockPaymentInitializer реализует интерфейс registration.PaymentInitializer
type MockPaymentInitializer struct {
	mock.Mock
}

func (m *MockPaymentInitializer) InitializePayment(req paymentprovider.InitPaymentRequest) (*paymentprovider.InitPaymentResponse, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*paymentprovider.InitPaymentResponse)
	return resp, args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestService(repo *MockRepository, sms *MockSMSSender, payments *MockPaymentInitializer) *Service {
	return New(repo, sms, payments, 5*time.Minute, "billing-gatekeeper", newTestLogger())
}

func fullDraft() models.RegistrationDraft {
	return models.RegistrationDraft{
		PlanUID:   "plan-growth",
		Email:     "owner@example.com",
		Username:  "owner",
		Password:  "strongpass",
		BrandName: "ACME",
		Phone:     "+79001234567",
	}
}

var growthPlan = &models.Plan{
	UID:          "plan-growth",
	Tier:         models.TierGrowth,
	MonthlyPrice: 990,
	TrialDays:    7,
	IsActive:     true,
}

func TestValidateStep(t *testing.T) {
	tests := []struct {
		name      string
		step      int
		draft     models.RegistrationDraft
		setupMock func(*MockRepository)
		wantErr   error
	}{
		{
			name:  "шаг 1 проходит для активного тарифа",
			step:  models.StepPlan,
			draft: models.RegistrationDraft{PlanUID: "plan-growth"},
			setupMock: func(m *MockRepository) {
				m.On("GetPlan", mock.Anything, "plan-growth").Return(growthPlan, nil)
			},
		},
		{
			name:  "шаг 1 отклоняет неактивный тариф",
			step:  models.StepPlan,
			draft: models.RegistrationDraft{PlanUID: "plan-old"},
			setupMock: func(m *MockRepository) {
				m.On("GetPlan", mock.Anything, "plan-old").
					Return(&models.Plan{UID: "plan-old", Tier: models.TierGrowth, IsActive: false}, nil)
			},
			wantErr: apperr.ErrValidation,
		},
		{
			name:  "шаг 2 отклоняет занятый email",
			step:  models.StepIdentity,
			draft: fullDraft(),
			setupMock: func(m *MockRepository) {
				m.On("GetPlan", mock.Anything, "plan-growth").Return(growthPlan, nil)
				m.On("EmailTaken", mock.Anything, "owner@example.com").Return(true, nil)
			},
			wantErr: apperr.ErrConflict,
		},
		{
			name:  "шаг 3 перепроверяет шаги 1 и 2",
			step:  models.StepBrand,
			draft: fullDraft(),
			setupMock: func(m *MockRepository) {
				m.On("GetPlan", mock.Anything, "plan-growth").Return(growthPlan, nil)
				m.On("EmailTaken", mock.Anything, "owner@example.com").Return(false, nil)
				m.On("UsernameTaken", mock.Anything, "owner").Return(false, nil)
				m.On("BrandNameTaken", mock.Anything, "ACME").Return(false, nil)
			},
		},
		{
			name: "шаг 4 требует телефон",
			step: models.StepPaymentPhone,
			draft: models.RegistrationDraft{
				PlanUID:   "plan-growth",
				Email:     "owner@example.com",
				Username:  "owner",
				Password:  "strongpass",
				BrandName: "ACME",
			},
			setupMock: func(m *MockRepository) {
				m.On("GetPlan", mock.Anything, "plan-growth").Return(growthPlan, nil)
				m.On("EmailTaken", mock.Anything, "owner@example.com").Return(false, nil)
				m.On("UsernameTaken", mock.Anything, "owner").Return(false, nil)
				m.On("BrandNameTaken", mock.Anything, "ACME").Return(false, nil)
			},
			wantErr: apperr.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMock(repo)

			svc := newTestService(repo, new(MockSMSSender), new(MockPaymentInitializer))
			err := svc.ValidateStep(context.Background(), tt.step, tt.draft)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}

func setupHappyValidation(repo *MockRepository) {
	repo.On("GetPlan", mock.Anything, "plan-growth").Return(growthPlan, nil)
	repo.On("EmailTaken", mock.Anything, "owner@example.com").Return(false, nil)
	repo.On("UsernameTaken", mock.Anything, "owner").Return(false, nil)
	repo.On("BrandNameTaken", mock.Anything, "ACME").Return(false, nil)
}

func TestComplete(t *testing.T) {
	t.Run("неподтверждённый телефон останавливает регистрацию", func(t *testing.T) {
		repo := new(MockRepository)
		setupHappyValidation(repo)
		repo.On("HasVerifiedPhone", mock.Anything, "+79001234567").Return(false, nil)

		svc := newTestService(repo, new(MockSMSSender), new(MockPaymentInitializer))
		_, err := svc.Complete(context.Background(), fullDraft())

		assert.ErrorIs(t, err, apperr.ErrConflict)
		repo.AssertNotCalled(t, "CreateRegistrationBundle", mock.Anything, mock.Anything)
	})

	t.Run("платный тариф с пробными днями даёт trialing и счёт", func(t *testing.T) {
		repo := new(MockRepository)
		payments := new(MockPaymentInitializer)
		setupHappyValidation(repo)
		repo.On("HasVerifiedPhone", mock.Anything, "+79001234567").Return(true, nil)
		repo.On("CreateRegistrationBundle", mock.Anything,
			mock.MatchedBy(func(b repository.RegistrationBundle) bool {
				return b.Subscription.Status == models.SubStatusTrialing &&
					b.Subscription.IsTrialActive &&
					b.Subscription.TrialEnd != nil &&
					b.Invoice != nil && b.Invoice.Amount == 990
			})).
			Return(&repository.RegistrationBundle{
				User:         models.User{UID: "user-1", Username: "owner", Role: "user"},
				Brand:        models.Brand{UID: "brand-1"},
				Subscription: models.Subscription{ID: 1, Status: models.SubStatusTrialing},
				Invoice:      &models.Invoice{ID: 7, Amount: 990, Currency: "RUB"},
			}, nil)
		payments.On("InitializePayment", mock.MatchedBy(func(req paymentprovider.InitPaymentRequest) bool {
			return req.OrderID == "7" && req.Amount == 990
		})).Return(&paymentprovider.InitPaymentResponse{RedirectURL: "https://pay.example.com/7"}, nil)

		svc := newTestService(repo, new(MockSMSSender), payments)
		result, err := svc.Complete(context.Background(), fullDraft())

		assert.NoError(t, err)
		assert.Equal(t, "user-1", result.Bundle.User.UID)
		assert.Equal(t, "https://pay.example.com/7", result.PaymentRedirectURL)
		repo.AssertExpectations(t)
		payments.AssertExpectations(t)
	})

	t.Run("бесплатный тариф сразу active и без счёта", func(t *testing.T) {
		freePlan := &models.Plan{UID: "plan-free", Tier: models.TierFree, IsActive: true}
		draft := fullDraft()
		draft.PlanUID = "plan-free"

		repo := new(MockRepository)
		repo.On("GetPlan", mock.Anything, "plan-free").Return(freePlan, nil)
		repo.On("EmailTaken", mock.Anything, "owner@example.com").Return(false, nil)
		repo.On("UsernameTaken", mock.Anything, "owner").Return(false, nil)
		repo.On("BrandNameTaken", mock.Anything, "ACME").Return(false, nil)
		repo.On("HasVerifiedPhone", mock.Anything, "+79001234567").Return(true, nil)
		repo.On("CreateRegistrationBundle", mock.Anything,
			mock.MatchedBy(func(b repository.RegistrationBundle) bool {
				return b.Subscription.Status == models.SubStatusActive &&
					!b.Subscription.IsTrialActive &&
					b.Invoice == nil
			})).
			Return(&repository.RegistrationBundle{
				User:         models.User{UID: "user-1"},
				Brand:        models.Brand{UID: "brand-1"},
				Subscription: models.Subscription{ID: 1, Status: models.SubStatusActive},
			}, nil)

		payments := new(MockPaymentInitializer)
		svc := newTestService(repo, new(MockSMSSender), payments)
		result, err := svc.Complete(context.Background(), draft)

		assert.NoError(t, err)
		assert.Empty(t, result.PaymentRedirectURL)
		payments.AssertNotCalled(t, "InitializePayment", mock.Anything)
	})

	t.Run("отказ платёжного шлюза не откатывает регистрацию", func(t *testing.T) {
		repo := new(MockRepository)
		payments := new(MockPaymentInitializer)
		setupHappyValidation(repo)
		repo.On("HasVerifiedPhone", mock.Anything, "+79001234567").Return(true, nil)
		repo.On("CreateRegistrationBundle", mock.Anything, mock.Anything).
			Return(&repository.RegistrationBundle{
				User:         models.User{UID: "user-1"},
				Brand:        models.Brand{UID: "brand-1"},
				Subscription: models.Subscription{ID: 1, Status: models.SubStatusTrialing},
				Invoice:      &models.Invoice{ID: 7, Amount: 990, Currency: "RUB"},
			}, nil)
		payments.On("InitializePayment", mock.Anything).
			Return(nil, assert.AnError)

		svc := newTestService(repo, new(MockSMSSender), payments)
		result, err := svc.Complete(context.Background(), fullDraft())

		assert.NoError(t, err)
		assert.Equal(t, "user-1", result.Bundle.User.UID)
		assert.Empty(t, result.PaymentRedirectURL)
	})
}
