package checkoutcreate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v76"

	"github.com/tradeboard/billing-service/internal/http/middlewarectx"
	"github.com/tradeboard/billing-service/internal/models"
)

type ProviderMock struct{ mock.Mock }

func (m *ProviderMock) CreateCheckoutSession(ctx context.Context, userUID string, plan *models.Plan,
	billingPeriod, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	args := m.Called(ctx, userUID, plan, billingPeriod, successURL, cancelURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.CheckoutSession), args.Error(1)
}

type PromoMock struct{ mock.Mock }

func (m *PromoMock) ActivatePromo(ctx context.Context, userUID string, plan *models.Plan) error {
	return m.Called(ctx, userUID, plan).Error(0)
}

type CatalogMock struct{ mock.Mock }

func (m *CatalogMock) GetPlan(ctx context.Context, planID string) (*models.Plan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCheckoutCreateHandler(t *testing.T) {
	plan := &models.Plan{ID: "plan_basic", Name: "basic", DisplayName: "Basic", PriceMonthly: 1900}
	promoPlan := &models.Plan{ID: "plan_promo_launch", Name: "promo_launch", FreePromo: true}
	validBody := `{"plan_id":"plan_basic","billing_period":"monthly",
		"success_url":"https://app.example.com/billing/success",
		"cancel_url":"https://app.example.com/billing/cancel"}`

	tests := []struct {
		name       string
		body       string
		userUID    string
		setupMocks func(p *ProviderMock, c *CatalogMock, a *PromoMock)
		wantStatus int
		wantBody   string
	}{
		{
			name:    "success",
			body:    validBody,
			userUID: "user-1",
			setupMocks: func(p *ProviderMock, c *CatalogMock, _ *PromoMock) {
				c.On("GetPlan", mock.Anything, "plan_basic").Return(plan, nil).Once()
				p.On("CreateCheckoutSession", mock.Anything, "user-1", plan, "monthly",
					"https://app.example.com/billing/success",
					"https://app.example.com/billing/cancel").
					Return(&stripe.CheckoutSession{
						ID:  "cs_1",
						URL: "https://checkout.stripe.com/c/pay/cs_1",
					}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `"session_id":"cs_1"`,
		},
		{
			name:       "invalid json",
			body:       `{"plan_id":`,
			userUID:    "user-1",
			setupMocks: func(_ *ProviderMock, _ *CatalogMock, _ *PromoMock) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid billing period fails validation",
			body:       strings.Replace(validBody, "monthly", "weekly", 1),
			userUID:    "user-1",
			setupMocks: func(_ *ProviderMock, _ *CatalogMock, _ *PromoMock) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "missing user uid",
			body:       validBody,
			userUID:    "",
			setupMocks: func(_ *ProviderMock, _ *CatalogMock, _ *PromoMock) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "unknown plan",
			body:    validBody,
			userUID: "user-1",
			setupMocks: func(_ *ProviderMock, c *CatalogMock, _ *PromoMock) {
				c.On("GetPlan", mock.Anything, "plan_basic").
					Return(nil, errors.New("plan not found")).Once()
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:    "provider failure",
			body:    validBody,
			userUID: "user-1",
			setupMocks: func(p *ProviderMock, c *CatalogMock, _ *PromoMock) {
				c.On("GetPlan", mock.Anything, "plan_basic").Return(plan, nil).Once()
				p.On("CreateCheckoutSession", mock.Anything, "user-1", plan, "monthly",
					mock.Anything, mock.Anything).
					Return(nil, errors.New("stripe unavailable")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:    "promo plan activates without provider call",
			body:    strings.Replace(validBody, "plan_basic", "plan_promo_launch", 1),
			userUID: "user-1",
			setupMocks: func(_ *ProviderMock, c *CatalogMock, a *PromoMock) {
				c.On("GetPlan", mock.Anything, "plan_promo_launch").Return(promoPlan, nil).Once()
				a.On("ActivatePromo", mock.Anything, "user-1", promoPlan).Return(nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `"status":"activated"`,
		},
		{
			name:    "promo activation failure",
			body:    strings.Replace(validBody, "plan_basic", "plan_promo_launch", 1),
			userUID: "user-1",
			setupMocks: func(_ *ProviderMock, c *CatalogMock, a *PromoMock) {
				c.On("GetPlan", mock.Anything, "plan_promo_launch").Return(promoPlan, nil).Once()
				a.On("ActivatePromo", mock.Anything, "user-1", promoPlan).
					Return(errors.New("db down")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			provider := new(ProviderMock)
			catalog := new(CatalogMock)
			promo := new(PromoMock)
			tc.setupMocks(provider, catalog, promo)

			handler := New(newNoopLogger(), provider, catalog, promo)

			req := httptest.NewRequest(http.MethodPost, "/billing/checkout", strings.NewReader(tc.body))
			if tc.userUID != "" {
				ctx := context.WithValue(req.Context(), middlewarectx.UserUID, tc.userUID)
				req = req.WithContext(ctx)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tc.wantBody)
			}
			provider.AssertExpectations(t)
			catalog.AssertExpectations(t)
			promo.AssertExpectations(t)
		})
	}
}
