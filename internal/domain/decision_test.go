package domain

import "testing"

func TestShouldFireToday(t *testing.T) {
	today := MustDate("2025-05-10")
	yesterday := "2025-05-09"
	todayStr := today.String()

	cases := []struct {
		name      string
		days      int
		threshold int
		last      string
		want      bool
	}{
		{"threshold match", 7, 7, yesterday, true},
		{"threshold match already sent", 7, 7, todayStr, false},
		{"threshold match never sent", 7, 7, "", true},
		{"milestone 3", 3, 7, "", true},
		{"milestone 1", 1, 30, "", true},
		{"expires today", 0, 7, "", true},
		{"overdue nudge", -1, 7, "", true},
		{"overdue nudge already sent", -1, 7, todayStr, false},
		{"no repeat overdue", -5, 7, "", false},
		{"between milestones", 5, 7, "", false},
		{"two days", 2, 7, "", false},
		{"custom threshold 14", 14, 14, "", true},
		{"no expiry", NoExpiry, 7, "", false},
		{"milestone and threshold together", 3, 3, yesterday, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldFireToday(tc.days, tc.threshold, tc.last, today); got != tc.want {
				t.Fatalf("ShouldFireToday(%d, %d, %q) = %v, want %v", tc.days, tc.threshold, tc.last, got, tc.want)
			}
		})
	}
}

func TestRules_OverdueRepeat(t *testing.T) {
	rl := Rules{OverdueRepeatDays: 7}
	fires := map[int]bool{-1: true, -8: true, -15: true}
	for d := -20; d <= -1; d++ {
		if got := rl.due(d, 30); got != fires[d] {
			t.Fatalf("days %d: got %v want %v", d, got, fires[d])
		}
	}
}

func TestDecide(t *testing.T) {
	today := MustDate("2025-05-10")
	s := DefaultSettings()
	s.ReminderDays = 10

	r := Resource{ID: "r1", Name: "vps", ExpiryDate: datePtr("2025-05-20")}
	d := Decide(r, s, today, Rules{}, nil)
	if !d.ShouldNotify || d.DaysRemaining != 10 || d.EffectiveThreshold != 10 || d.AlreadySentToday {
		t.Fatalf("unexpected decision %+v", d)
	}

	r.MarkNotified(today)
	d = Decide(r, s, today, Rules{}, nil)
	if d.ShouldNotify || !d.AlreadySentToday {
		t.Fatalf("expected dedup, got %+v", d)
	}

	r.Notification = &NotificationSettings{Enabled: false}
	d = Decide(r, s, today, Rules{}, nil)
	if d.ShouldNotify {
		t.Fatalf("disabled resource must not fire: %+v", d)
	}
}

type alwaysNotified struct{}

func (alwaysNotified) WasNotifiedOn(Resource, Date) bool { return true }

func TestDecide_CustomDeduper(t *testing.T) {
	today := MustDate("2025-05-10")
	r := Resource{ID: "r1", ExpiryDate: datePtr("2025-05-10")}
	d := Decide(r, DefaultSettings(), today, Rules{}, alwaysNotified{})
	if d.ShouldNotify {
		t.Fatalf("deduper must suppress: %+v", d)
	}
}
