package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeboard/billing-service/internal/models"
)

func strPtr(s string) *string { return &s }

func testSubscription(userUID, stripeSubscriptionID string) models.UserSubscription {
	start := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	sub := models.UserSubscription{
		UserUID:            userUID,
		PlanID:             "plan_basic",
		StripeSessionID:    "cs_" + userUID,
		StripeCustomerID:   strPtr("cus_" + userUID),
		Status:             models.SubscriptionStatusActive,
		BillingPeriod:      models.BillingPeriodMonthly,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   start.AddDate(0, 1, 0),
	}
	if stripeSubscriptionID != "" {
		sub.StripeSubscriptionID = strPtr(stripeSubscriptionID)
	}
	return sub
}

func TestUpsertSubscription_CreateAndRead(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	sub := testSubscription("user-1", "sub_A")
	require.NoError(t, storage.UpsertSubscription(ctx, sub))

	got, err := storage.GetSubscriptionByUserUID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "plan_basic", got.PlanID)
	assert.Equal(t, models.SubscriptionStatusActive, got.Status)
	require.NotNil(t, got.StripeSubscriptionID)
	assert.Equal(t, "sub_A", *got.StripeSubscriptionID)
	assert.True(t, got.CurrentPeriodEnd.Equal(sub.CurrentPeriodEnd))
	require.NotNil(t, got.UpdatedAt)
}

func TestUpsertSubscription_ResubscribeOverwritesRow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	first := testSubscription("user-1", "sub_A")
	first.Status = models.SubscriptionStatusCanceled
	require.NoError(t, storage.UpsertSubscription(ctx, first))

	second := testSubscription("user-1", "sub_B")
	second.PlanID = "plan_pro"
	second.BillingPeriod = models.BillingPeriodYearly
	second.CurrentPeriodEnd = second.CurrentPeriodStart.AddDate(1, 0, 0)
	require.NoError(t, storage.UpsertSubscription(ctx, second))

	got, err := storage.GetSubscriptionByUserUID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "plan_pro", got.PlanID)
	assert.Equal(t, models.SubscriptionStatusActive, got.Status)
	assert.Equal(t, models.BillingPeriodYearly, got.BillingPeriod)
	require.NotNil(t, got.StripeSubscriptionID)
	assert.Equal(t, "sub_B", *got.StripeSubscriptionID)

	var count int
	err = storage.DB.QueryRow(`SELECT COUNT(*) FROM user_subscriptions WHERE user_uid = $1`, "user-1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpdateStatusByStripeSubscriptionID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, storage.UpsertSubscription(ctx, testSubscription("user-1", "sub_A")))

	rows, err := storage.UpdateStatusByStripeSubscriptionID(ctx, "sub_A", models.SubscriptionStatusPastDue)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	got, err := storage.GetSubscriptionByUserUID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusPastDue, got.Status)

	rows, err = storage.UpdateStatusByStripeSubscriptionID(ctx, "sub_unknown", models.SubscriptionStatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}

func TestUpdatePeriodsByStripeSubscriptionID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	sub := testSubscription("user-1", "sub_A")
	sub.Status = models.SubscriptionStatusPastDue
	require.NoError(t, storage.UpsertSubscription(ctx, sub))

	newStart := time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC)
	newEnd := newStart.AddDate(0, 1, 0)
	rows, err := storage.UpdatePeriodsByStripeSubscriptionID(ctx, "sub_A",
		models.SubscriptionStatusActive, newStart, newEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	got, err := storage.GetSubscriptionByUserUID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, got.Status)
	assert.True(t, got.CurrentPeriodStart.Equal(newStart))
	assert.True(t, got.CurrentPeriodEnd.Equal(newEnd))
}

func TestUpdateFromEventByStripeSubscriptionID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, storage.UpsertSubscription(ctx, testSubscription("user-1", "sub_A")))

	newStart := time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC)
	newEnd := newStart.AddDate(0, 1, 0)
	rows, err := storage.UpdateFromEventByStripeSubscriptionID(ctx, "sub_A",
		"trialing", newStart, newEnd, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	got, err := storage.GetSubscriptionByUserUID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "trialing", got.Status)
	assert.True(t, got.CancelAtPeriodEnd)
}

func TestGetSubscriptionByUserUID_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	_, err := storage.GetSubscriptionByUserUID(context.Background(), "user-none")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}
