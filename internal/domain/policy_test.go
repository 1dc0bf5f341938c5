package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func intPtr(n int) *int { return &n }

func globalSettings() Settings {
	return Settings{
		ReminderDays: 7,
		Telegram:     TelegramSettings{Enabled: true, ChatID: "42"},
		Email:        EmailSettings{Enabled: false, Address: "ops@example.com"},
		Webhook:      WebhookSettings{Enabled: true, URL: ""},
	}
}

func TestResolvePolicy_NoSettingsUsesGlobal(t *testing.T) {
	p := ResolvePolicy(Resource{}, globalSettings())
	want := Policy{Enabled: true, Channels: ChannelFlags{Telegram: true, Webhook: true}, ThresholdDays: 7}
	if p != want {
		t.Fatalf("got %+v, want %+v", p, want)
	}
}

func TestResolvePolicy_UseGlobalIgnoresOverrides(t *testing.T) {
	r := Resource{Notification: &NotificationSettings{
		Enabled:      true,
		UseGlobal:    true,
		ReminderDays: intPtr(30),
		Channels:     &ChannelFlags{Email: true},
	}}
	p := ResolvePolicy(r, globalSettings())
	if p.ThresholdDays != 7 {
		t.Fatalf("threshold = %d, want global 7", p.ThresholdDays)
	}
	if p.Channels != (ChannelFlags{Telegram: true, Webhook: true}) {
		t.Fatalf("channels = %+v, want global", p.Channels)
	}
}

func TestResolvePolicy_CustomIsExclusive(t *testing.T) {
	r := Resource{Notification: &NotificationSettings{
		Enabled:      true,
		UseGlobal:    false,
		ReminderDays: intPtr(14),
		Channels:     &ChannelFlags{Email: true},
	}}
	p := ResolvePolicy(r, globalSettings())
	want := Policy{Enabled: true, Channels: ChannelFlags{Email: true}, ThresholdDays: 14}
	if p != want {
		t.Fatalf("got %+v, want %+v", p, want)
	}
}

func TestResolvePolicy_CustomDefaults(t *testing.T) {
	r := Resource{Notification: &NotificationSettings{Enabled: true}}
	p := ResolvePolicy(r, globalSettings())
	if p.ThresholdDays != 7 || p.Channels.Any() {
		t.Fatalf("got %+v", p)
	}
}

func TestResolvePolicy_Disabled(t *testing.T) {
	r := Resource{Notification: &NotificationSettings{Enabled: false, UseGlobal: true}}
	if p := ResolvePolicy(r, globalSettings()); p.Enabled {
		t.Fatalf("expected disabled, got %+v", p)
	}
}

func TestPolicy_DeliverableRequiresTargets(t *testing.T) {
	s := globalSettings()
	p := Policy{Enabled: true, Channels: ChannelFlags{Telegram: true, Email: true, Webhook: true}}
	got := p.Deliverable(s)
	if got != (ChannelFlags{Telegram: true, Email: true}) {
		t.Fatalf("got %+v", got)
	}
}

func TestResource_JSONKeepsNotificationShape(t *testing.T) {
	in := `{"id":"a","name":"box","provider":"hetzner","category":"VPS","currency":"EUR","cost":"4.5",` +
		`"billingCycle":"monthly","expiryDate":"2025-06-01",` +
		`"notificationSettings":{"enabled":true,"useGlobal":true,"reminderDays":3,"channels":{"telegram":false,"email":true,"webhook":false}},` +
		`"createdAt":"0001-01-01T00:00:00Z","updatedAt":"0001-01-01T00:00:00Z"}`
	var r Resource
	if err := json.Unmarshal([]byte(in), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.ExpiryDate == nil || r.ExpiryDate.String() != "2025-06-01" {
		t.Fatalf("expiry = %v", r.ExpiryDate)
	}
	if !r.Cost.Equal(decimal.RequireFromString("4.5")) {
		t.Fatalf("cost = %s", r.Cost)
	}
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != in {
		t.Fatalf("round trip changed payload:\n in: %s\nout: %s", in, out)
	}
}

func TestResource_Validate(t *testing.T) {
	r := Resource{Name: "x", Category: CategoryDomain, Cost: decimal.NewFromInt(-1)}
	err := r.Validate()
	if !errors.Is(err, ErrInvalidResource) {
		t.Fatalf("expected ErrInvalidResource, got %v", err)
	}
	r.Cost = decimal.NewFromInt(10)
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	r.Notification = &NotificationSettings{Enabled: true, ReminderDays: intPtr(500)}
	if err := r.Validate(); err == nil {
		t.Fatal("expected reminderDays error")
	}
}

func TestDiff(t *testing.T) {
	old := Resource{Name: "a", Cost: decimal.RequireFromString("1.00"), ExpiryDate: datePtr("2025-01-01")}
	upd := Resource{Name: "b", Cost: decimal.RequireFromString("1"), ExpiryDate: datePtr("2025-02-01")}
	changes := Diff(old, upd)
	if len(changes) != 2 {
		t.Fatalf("got %+v", changes)
	}
	if changes[0] != (Change{Field: "name", Old: "a", New: "b"}) {
		t.Fatalf("got %+v", changes[0])
	}
	if changes[1].Field != "expiryDate" || changes[1].New != "2025-02-01" {
		t.Fatalf("got %+v", changes[1])
	}
}

func TestResource_MonthlyCost(t *testing.T) {
	tests := []struct {
		cycle BillingCycle
		cost  string
		want  string
	}{
		{BillingMonthly, "4.5", "4.5"},
		{BillingQuarterly, "30", "10"},
		{BillingYearly, "120", "10"},
		{BillingOneTime, "99", "0"},
		{BillingUnset, "99", "0"},
	}
	for _, tt := range tests {
		r := Resource{BillingCycle: tt.cycle, Cost: decimal.RequireFromString(tt.cost)}
		if got := r.MonthlyCost(); !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("%q: MonthlyCost() = %s, want %s", tt.cycle, got, tt.want)
		}
	}
}

func TestResource_FormatCost(t *testing.T) {
	r := Resource{Cost: decimal.RequireFromString("4.5"), Currency: "EUR"}
	if got := r.FormatCost(); got != "4.50 EUR" {
		t.Errorf("FormatCost() = %q", got)
	}
	r.CurrencySymbol = "€"
	if got := r.FormatCost(); got != "€4.50" {
		t.Errorf("FormatCost() with symbol = %q", got)
	}
}
