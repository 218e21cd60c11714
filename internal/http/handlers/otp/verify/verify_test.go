package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/apperr"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// MockService реализует интерфейс verify.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) VerifyOTP(ctx context.Context, phone, code string) (bool, error) {
	args := m.Called(ctx, phone, code)
	return args.Bool(0), args.Error(1)
}

func TestVerifyHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "телефон подтверждён",
			requestBody: models.DummyOTPVerify{Phone: "+79001234567", Code: "123456"},
			setupMock: func(m *MockService) {
				m.On("VerifyOTP", mock.Anything, "+79001234567", "123456").Return(true, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"verified":true`,
		},
		{
			name:           "код не из шести цифр отклоняется до сервиса",
			requestBody:    models.DummyOTPVerify{Phone: "+79001234567", Code: "12ab"},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:        "исчерпанные попытки отвечают конфликтом",
			requestBody: models.DummyOTPVerify{Phone: "+79001234567", Code: "123456"},
			setupMock: func(m *MockService) {
				m.On("VerifyOTP", mock.Anything, "+79001234567", "123456").
					Return(false, apperr.Wrap(apperr.ErrConflict, "verification attempts exhausted, request a new code"))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `attempts exhausted`,
		},
		{
			name:        "неверный код отвечает 422",
			requestBody: models.DummyOTPVerify{Phone: "+79001234567", Code: "654321"},
			setupMock: func(m *MockService) {
				m.On("VerifyOTP", mock.Anything, "+79001234567", "654321").
					Return(false, apperr.Wrap(apperr.ErrValidation, "code does not match"))
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `code does not match`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			body, err := json.Marshal(tt.requestBody)
			assert.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/otp/verify", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-id"))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
			mockService.AssertExpectations(t)
		})
	}
}
