package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/tradeboard/billing-service/internal/models"
	"github.com/tradeboard/billing-service/internal/storage/repository"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetSubscriptionByUserUID(ctx context.Context, userUID string) (*models.UserSubscription, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSubscription), args.Error(1)
}
func (m *RepoMock) ListPaymentsByUser(ctx context.Context, userUID string) ([]*models.Payment, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestSubscriptionService_GetSubscriptionStatus(t *testing.T) {
	now := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		setupMocks func(r *RepoMock)
		want       bool
		wantErr    bool
	}{
		{
			name: "active subscription within period",
			setupMocks: func(r *RepoMock) {
				r.On("GetSubscriptionByUserUID", mock.Anything, "user-1").Return(&models.UserSubscription{
					UserUID:          "user-1",
					Status:           models.SubscriptionStatusActive,
					CurrentPeriodEnd: now.AddDate(0, 0, 10),
				}, nil).Once()
			},
			want: true,
		},
		{
			name: "active subscription past period end",
			setupMocks: func(r *RepoMock) {
				r.On("GetSubscriptionByUserUID", mock.Anything, "user-1").Return(&models.UserSubscription{
					UserUID:          "user-1",
					Status:           models.SubscriptionStatusActive,
					CurrentPeriodEnd: now.AddDate(0, 0, -1),
				}, nil).Once()
			},
			want: false,
		},
		{
			name: "past_due subscription has no access",
			setupMocks: func(r *RepoMock) {
				r.On("GetSubscriptionByUserUID", mock.Anything, "user-1").Return(&models.UserSubscription{
					UserUID:          "user-1",
					Status:           models.SubscriptionStatusPastDue,
					CurrentPeriodEnd: now.AddDate(0, 0, 10),
				}, nil).Once()
			},
			want: false,
		},
		{
			name: "no subscription is not an error",
			setupMocks: func(r *RepoMock) {
				r.On("GetSubscriptionByUserUID", mock.Anything, "user-1").
					Return(nil, repository.ErrSubscriptionNotFound).Once()
			},
			want: false,
		},
		{
			name: "storage error is propagated",
			setupMocks: func(r *RepoMock) {
				r.On("GetSubscriptionByUserUID", mock.Anything, "user-1").
					Return(nil, errors.New("db down")).Once()
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(RepoMock)
			tc.setupMocks(repo)

			svc := New(newNoopLogger(), repo)
			svc.now = func() time.Time { return now }

			got, err := svc.GetSubscriptionStatus(context.Background(), "user-1")
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.want, got)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestSubscriptionService_ListPayments(t *testing.T) {
	payments := []*models.Payment{
		{ID: 2, UserUID: "user-1", StripePaymentID: "pi_2", Amount: 1900},
		{ID: 1, UserUID: "user-1", StripePaymentID: "pi_1", Amount: 1900},
	}

	repo := new(RepoMock)
	repo.On("ListPaymentsByUser", mock.Anything, "user-1").Return(payments, nil).Once()

	svc := New(newNoopLogger(), repo)
	got, err := svc.ListPayments(context.Background(), "user-1")

	assert.NoError(t, err)
	assert.Equal(t, payments, got)
	repo.AssertExpectations(t)
}
