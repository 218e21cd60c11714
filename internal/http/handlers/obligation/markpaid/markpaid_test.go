package markpaid

import (
	"context"
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
	"github.com/magabrotheeeer/billing-gatekeeper/internal/http/middlewarectx"
)

// MockService реализует интерфейс markpaid.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) MarkPaid(ctx context.Context, id int64, userUID string) error {
	args := m.Called(ctx, id, userUID)
	return args.Error(0)
}

func TestMarkPaidHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		idParam        string
		userUID        any
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "обязательство отмечено оплаченным",
			idParam: "42",
			userUID: "user-uid-1",
			setupMock: func(m *MockService) {
				m.On("MarkPaid", mock.Anything, int64(42), "user-uid-1").Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"paid":true`,
		},
		{
			name:           "некорректный id в url",
			idParam:        "abc",
			userUID:        "user-uid-1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid id"}`,
		},
		{
			name:           "без uid пользователя в контексте",
			idParam:        "42",
			userUID:        nil,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized"}`,
		},
		{
			name:    "сконвертированная запись неизменяема",
			idParam: "42",
			userUID: "user-uid-1",
			setupMock: func(m *MockService) {
				m.On("MarkPaid", mock.Anything, int64(42), "user-uid-1").
					Return(apperr.Wrap(apperr.ErrConflict, "obligation is converted or not found"))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `obligation is converted or not found`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/obligations/"+tt.idParam+"/paid", nil)

			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "req-id")
			if tt.userUID != nil {
				ctx = context.WithValue(ctx, middlewarectx.UserUID, tt.userUID)
			}
			req = req.WithContext(ctx)

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.idParam)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}
