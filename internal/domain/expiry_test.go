package domain

import (
	"testing"
	"time"
)

func datePtr(s string) *Date {
	d := MustDate(s)
	return &d
}

func TestDaysRemaining(t *testing.T) {
	today := MustDate("2025-05-10")
	cases := []struct {
		name   string
		expiry *Date
		want   int
	}{
		{"future", datePtr("2025-05-17"), 7},
		{"tomorrow", datePtr("2025-05-11"), 1},
		{"today", datePtr("2025-05-10"), 0},
		{"yesterday", datePtr("2025-05-09"), -1},
		{"long overdue", datePtr("2025-04-30"), -10},
		{"across year", datePtr("2026-01-01"), 236},
		{"no expiry", nil, NoExpiry},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DaysRemaining(tc.expiry, today); got != tc.want {
				t.Fatalf("want %d, got %d", tc.want, got)
			}
		})
	}
}

func TestDaysRemaining_SignMatchesDirection(t *testing.T) {
	today := MustDate("2024-02-28")
	for offset := -400; offset <= 400; offset += 13 {
		exp := today.AddDays(offset)
		got := DaysRemaining(&exp, today)
		if got != offset {
			t.Fatalf("offset %d: got %d", offset, got)
		}
	}
}

func TestDaysRemaining_IgnoresDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2025-03-30 is the spring-forward day in Berlin.
	now := time.Date(2025, time.March, 29, 23, 30, 0, 0, loc)
	today := Today(now, loc)
	if today.String() != "2025-03-29" {
		t.Fatalf("today = %s", today)
	}
	if got := DaysRemaining(datePtr("2025-03-31"), today); got != 2 {
		t.Fatalf("want 2, got %d", got)
	}
}

func TestToday_UsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	now := time.Date(2025, time.May, 10, 20, 0, 0, 0, time.UTC)
	if got := Today(now, loc).String(); got != "2025-05-11" {
		t.Fatalf("want 2025-05-11, got %s", got)
	}
	if got := Today(now, nil).String(); got != "2025-05-10" {
		t.Fatalf("want 2025-05-10, got %s", got)
	}
}

func TestParseDate_Rejects(t *testing.T) {
	for _, s := range []string{"", "2025-13-01", "2025/01/01", "tomorrow", "2025-02-30"} {
		if _, err := ParseDate(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}
