package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykvlv/assetwatch/internal/domain"
)

func openTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleResource(id string) *domain.Resource {
	exp := domain.MustDate("2025-06-01")
	days := 14
	return &domain.Resource{
		ID:             id,
		Name:           "edge-" + id,
		Provider:       "hetzner",
		Category:       domain.CategoryVPS,
		Currency:       "EUR",
		CurrencySymbol: "€",
		Cost:           decimal.RequireFromString("4.51"),
		BillingCycle:   domain.BillingMonthly,
		ExpiryDate:     &exp,
		Notes:          "fra1",
		Notification: &domain.NotificationSettings{
			Enabled:      true,
			UseGlobal:    false,
			ReminderDays: &days,
			Channels:     &domain.ChannelFlags{Email: true},
		},
	}
}

func TestSQLiteRepo_ResourceRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	in := sampleResource("a")
	require.NoError(t, repo.CreateResource(ctx, in))

	got, err := repo.GetResource(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, in.Name, got.Name)
	assert.True(t, in.Cost.Equal(got.Cost))
	assert.Equal(t, "2025-06-01", got.ExpiryDate.String())
	assert.Nil(t, got.StartDate)
	require.NotNil(t, got.Notification)
	assert.Equal(t, *in.Notification, *got.Notification)
	assert.Equal(t, in.CreatedAt.Unix(), got.CreatedAt.Unix())
}

func TestSQLiteRepo_ListOrdersUndatedLast(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	late := sampleResource("late")
	d := domain.MustDate("2026-01-01")
	late.ExpiryDate = &d
	undated := sampleResource("undated")
	undated.ExpiryDate = nil
	early := sampleResource("early")

	for _, r := range []*domain.Resource{late, undated, early} {
		require.NoError(t, repo.CreateResource(ctx, r))
	}

	list, err := repo.ListResources(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"early", "late", "undated"}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestSQLiteRepo_UpdateAndDeleteNotFound(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	err := repo.UpdateResource(ctx, sampleResource("missing"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteResource(ctx, "missing"), ErrNotFound)

	_, err = repo.GetResource(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteRepo_UpdateResourceNotificationState(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	withSettings := sampleResource("a")
	bare := sampleResource("b")
	bare.Notification = nil
	require.NoError(t, repo.CreateResource(ctx, withSettings))
	require.NoError(t, repo.CreateResource(ctx, bare))

	require.NoError(t, repo.UpdateResourceNotificationState(ctx, "a", "2025-05-10"))
	require.NoError(t, repo.UpdateResourceNotificationState(ctx, "b", "2025-05-10"))

	a, err := repo.GetResource(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2025-05-10", a.Notification.LastNotified)
	assert.False(t, a.Notification.UseGlobal, "existing override must be preserved")
	assert.Equal(t, 14, *a.Notification.ReminderDays)

	b, err := repo.GetResource(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationSettings{Enabled: true, UseGlobal: true, LastNotified: "2025-05-10"}, *b.Notification)

	assert.ErrorIs(t, repo.UpdateResourceNotificationState(ctx, "zzz", "2025-05-10"), ErrNotFound)
}

func TestSQLiteRepo_Settings(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	s, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), s)

	s.ReminderDays = 10
	s.Telegram = domain.TelegramSettings{Enabled: true, ChatID: "-100123"}
	s.Webhook = domain.WebhookSettings{Enabled: true, URL: "https://hooks.example.com/x"}
	require.NoError(t, repo.SaveSettings(ctx, s))

	got, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	repo := openTestRepo(t)
	require.NoError(t, RunMigrations(context.Background(), repo.db))
	require.NoError(t, RunMigrations(context.Background(), repo.db))
}
