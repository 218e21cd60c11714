package step

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/apperr"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// MockService реализует интерфейс step.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ValidateStep(ctx context.Context, step int, draft models.RegistrationDraft) error {
	args := m.Called(ctx, step, draft)
	return args.Error(0)
}

func TestStepHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	validDraft := models.RegistrationDraft{
		PlanUID:  "f47ac10b-58cc-4372-a567-0e02b2c3d479",
		Email:    "owner@example.com",
		Username: "owner",
		Password: "strongpass",
	}

	tests := []struct {
		name           string
		stepParam      string
		requestBody    interface{}
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешная проверка шага",
			stepParam:   "2",
			requestBody: validDraft,
			setupMock: func(m *MockService) {
				m.On("ValidateStep", mock.Anything, 2, mock.AnythingOfType("models.RegistrationDraft")).
					Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"valid":true`,
		},
		{
			name:           "некорректный номер шага",
			stepParam:      "9",
			requestBody:    validDraft,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid step number"}`,
		},
		{
			name:           "некорректный JSON",
			stepParam:      "1",
			requestBody:    "not a json",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:           "черновик без тарифа не проходит валидацию",
			stepParam:      "1",
			requestBody:    models.RegistrationDraft{},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field PlanUID is a required field`,
		},
		{
			name:        "конфликт занятого email",
			stepParam:   "2",
			requestBody: validDraft,
			setupMock: func(m *MockService) {
				m.On("ValidateStep", mock.Anything, 2, mock.AnythingOfType("models.RegistrationDraft")).
					Return(apperr.Wrap(apperr.ErrConflict, "step 2: email is already taken"))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `email is already taken`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			var body []byte
			var err error
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				assert.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/register/steps/"+tt.stepParam, bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "req-id")
			req = req.WithContext(ctx)

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("n", tt.stepParam)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}
