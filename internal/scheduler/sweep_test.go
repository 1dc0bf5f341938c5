package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ykvlv/assetwatch/internal/domain"
	"github.com/ykvlv/assetwatch/internal/notify"
	"github.com/ykvlv/assetwatch/internal/store"
)

type memStore struct {
	mu        sync.Mutex
	settings  domain.Settings
	resources []domain.Resource
	updates   map[string]string
	updateErr error
}

func (m *memStore) ListResources(context.Context) ([]domain.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Resource, len(m.resources))
	copy(out, m.resources)
	return out, nil
}

func (m *memStore) UpdateResourceNotificationState(_ context.Context, id, lastNotified string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.updates == nil {
		m.updates = map[string]string{}
	}
	m.updates[id] = lastNotified
	for i := range m.resources {
		if m.resources[i].ID == id {
			m.resources[i].MarkNotified(domain.MustDate(lastNotified))
		}
	}
	return nil
}

func (m *memStore) GetSettings(context.Context) (domain.Settings, error) {
	return m.settings, nil
}

type stubNotifier struct {
	mu     sync.Mutex
	calls  []string
	result func(r domain.Resource) notify.Summary
}

func (n *stubNotifier) Notify(_ context.Context, r domain.Resource, _ int, _ domain.Settings) notify.Summary {
	n.mu.Lock()
	n.calls = append(n.calls, r.ID)
	n.mu.Unlock()
	return n.result(r)
}

func delivered(chs ...notify.Channel) func(domain.Resource) notify.Summary {
	return func(domain.Resource) notify.Summary {
		var s notify.Summary
		for _, ch := range chs {
			s.Results = append(s.Results, notify.ChannelResult{Channel: ch})
		}
		return s
	}
}

var fixedNow = time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

func expiring(id string, days int) domain.Resource {
	exp := domain.DateOf(fixedNow).AddDays(days)
	return domain.Resource{ID: id, Name: "res " + id, Category: domain.CategoryVPS, ExpiryDate: &exp}
}

func newTestSweeper(st Store, n Notifier, workers int) *Sweeper {
	return NewSweeper(st, n, zap.NewNop(), Options{
		Workers: workers,
		Now:     func() time.Time { return fixedNow },
	})
}

func TestSweep_NotifiesDueResources(t *testing.T) {
	st := &memStore{
		settings: domain.Settings{ReminderDays: 7},
		resources: []domain.Resource{
			expiring("a", 7),
			expiring("b", 5),
			expiring("c", 0),
			{ID: "d", Name: "lifetime", Category: domain.CategoryAccount},
			expiring("e", -5),
		},
	}
	n := &stubNotifier{result: delivered(notify.ChannelTelegram, notify.ChannelEmail)}

	rep, err := newTestSweeper(st, n, 1).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, rep.Processed)
	assert.Equal(t, 2, rep.NotificationsSent)
	assert.Equal(t, []string{"a", "c"}, n.calls)
	require.Len(t, rep.Details, 2)
	assert.Equal(t, Detail{ID: "a", Name: "res a", DaysRemaining: 7, Channels: []string{"Telegram", "Email"}}, rep.Details[0])
	assert.Equal(t, 0, rep.Details[1].DaysRemaining)
	assert.Equal(t, map[string]string{"a": "2025-05-10", "c": "2025-05-10"}, st.updates)
}

func TestSweep_IdempotentWithinDay(t *testing.T) {
	st := &memStore{
		settings:  domain.Settings{ReminderDays: 7},
		resources: []domain.Resource{expiring("a", 3), expiring("b", -1)},
	}
	n := &stubNotifier{result: delivered(notify.ChannelWebhook)}
	sw := newTestSweeper(st, n, 1)

	first, err := sw.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.NotificationsSent)

	second, err := sw.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.NotificationsSent)
	assert.Empty(t, second.Details)
	assert.Len(t, n.calls, 2)
}

func TestSweep_NoSuccessLeavesMarker(t *testing.T) {
	st := &memStore{
		settings:  domain.Settings{ReminderDays: 7},
		resources: []domain.Resource{expiring("a", 1)},
	}
	n := &stubNotifier{result: func(domain.Resource) notify.Summary {
		return notify.Summary{Results: []notify.ChannelResult{
			{Channel: notify.ChannelTelegram, Err: errors.New("down")},
			{Channel: notify.ChannelEmail, Err: errors.New("down")},
		}}
	}}
	sw := newTestSweeper(st, n, 1)

	rep, err := sw.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, rep.NotificationsSent)
	assert.Empty(t, st.updates)

	// Still due on the next sweep.
	_, err = sw.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a"}, n.calls)
}

func TestSweep_DisabledResourceNotContacted(t *testing.T) {
	r := expiring("a", 7)
	r.Notification = &domain.NotificationSettings{Enabled: false}
	st := &memStore{settings: domain.Settings{ReminderDays: 7}, resources: []domain.Resource{r}}
	n := &stubNotifier{result: delivered(notify.ChannelEmail)}

	rep, err := newTestSweeper(st, n, 1).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Processed)
	assert.Empty(t, n.calls)
}

func TestSweep_PersistFailureStillReported(t *testing.T) {
	st := &memStore{
		settings:  domain.Settings{ReminderDays: 7},
		resources: []domain.Resource{expiring("a", 7)},
		updateErr: errors.New("disk full"),
	}
	n := &stubNotifier{result: delivered(notify.ChannelEmail)}

	rep, err := newTestSweeper(st, n, 1).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.NotificationsSent)
}

func TestSweep_WorkerPoolKeepsOrder(t *testing.T) {
	st := &memStore{settings: domain.Settings{ReminderDays: 7}}
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		st.resources = append(st.resources, expiring(id, 3))
	}
	n := &stubNotifier{result: delivered(notify.ChannelEmail)}

	rep, err := newTestSweeper(st, n, 4).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Details, 6)
	for i, id := range []string{"a", "b", "c", "d", "e", "f"} {
		assert.Equal(t, id, rep.Details[i].ID)
	}
	assert.Len(t, st.updates, 6)
}

type recordingSender struct {
	ch    notify.Channel
	err   error
	mu    sync.Mutex
	count int
}

func (s *recordingSender) Channel() notify.Channel { return s.ch }

func (s *recordingSender) Send(context.Context, string, notify.Message) error {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	return s.err
}

func TestSweep_WithSQLiteAndDispatcher(t *testing.T) {
	ctx := context.Background()
	repo, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "sweep.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.SaveSettings(ctx, domain.Settings{
		ReminderDays: 7,
		Telegram:     domain.TelegramSettings{Enabled: true, ChatID: "42"},
		Email:        domain.EmailSettings{Enabled: true, Address: "ops@example.com"},
	}))
	r := expiring("a", 7)
	require.NoError(t, repo.CreateResource(ctx, &r))

	tg := &recordingSender{ch: notify.ChannelTelegram, err: errors.New("bot blocked")}
	em := &recordingSender{ch: notify.ChannelEmail}
	sw := newTestSweeper(repo, notify.NewDispatcher(zap.NewNop(), tg, em), 1)

	rep, err := sw.Run(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Details, 1)
	assert.Equal(t, []string{"Email"}, rep.Details[0].Channels)

	got, err := repo.GetResource(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2025-05-10", got.LastNotified())

	rep, err = sw.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.NotificationsSent)
	assert.Equal(t, 1, tg.count)
	assert.Equal(t, 1, em.count)
}

func TestNew_RejectsBadSchedule(t *testing.T) {
	sw := newTestSweeper(&memStore{}, &stubNotifier{result: delivered()}, 1)
	_, err := New(sw, "not a cron", time.UTC, zap.NewNop())
	assert.Error(t, err)

	s, err := New(sw, "0 9 * * *", nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, time.UTC, s.loc)
}
