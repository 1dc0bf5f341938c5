package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies a tracked asset.
type Category string

const (
	CategoryVPS         Category = "VPS"
	CategoryDomain      Category = "DOMAIN"
	CategoryPhoneNumber Category = "PHONE_NUMBER"
	CategoryAccount     Category = "ACCOUNT"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryVPS, CategoryDomain, CategoryPhoneNumber, CategoryAccount:
		return true
	}
	return false
}

// BillingCycle is how often a resource is paid for. Empty means unset.
type BillingCycle string

const (
	BillingMonthly   BillingCycle = "monthly"
	BillingQuarterly BillingCycle = "quarterly"
	BillingYearly    BillingCycle = "yearly"
	BillingOneTime   BillingCycle = "one-time"
	BillingUnset     BillingCycle = ""
)

func (b BillingCycle) Valid() bool {
	switch b {
	case BillingMonthly, BillingQuarterly, BillingYearly, BillingOneTime, BillingUnset:
		return true
	}
	return false
}

// MaxReminderDays bounds configured lead times.
const MaxReminderDays = 365

var ErrInvalidResource = errors.New("invalid resource")

// ChannelFlags selects notification channels.
type ChannelFlags struct {
	Telegram bool `json:"telegram"`
	Email    bool `json:"email"`
	Webhook  bool `json:"webhook"`
}

// Any reports whether at least one channel is selected.
func (c ChannelFlags) Any() bool { return c.Telegram || c.Email || c.Webhook }

// NotificationSettings is the per-resource override of global policy.
// When UseGlobal is true, ReminderDays and Channels are ignored.
type NotificationSettings struct {
	Enabled      bool          `json:"enabled"`
	UseGlobal    bool          `json:"useGlobal"`
	ReminderDays *int          `json:"reminderDays,omitempty"`
	LastNotified string        `json:"lastNotified,omitempty"` // calendar date, same-day de-dup only
	Channels     *ChannelFlags `json:"channels,omitempty"`
}

// Resource is a tracked asset.
type Resource struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Provider       string                `json:"provider"`
	Category       Category              `json:"category"`
	Currency       string                `json:"currency"`
	CurrencySymbol string                `json:"currencySymbol,omitempty"`
	Cost           decimal.Decimal       `json:"cost"`
	BillingCycle   BillingCycle          `json:"billingCycle,omitempty"`
	ExpiryDate     *Date                 `json:"expiryDate,omitempty"`
	StartDate      *Date                 `json:"startDate,omitempty"`
	Notes          string                `json:"notes,omitempty"`
	Notification   *NotificationSettings `json:"notificationSettings,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// LastNotified returns the stored de-dup marker or "".
func (r *Resource) LastNotified() string {
	if r.Notification == nil {
		return ""
	}
	return r.Notification.LastNotified
}

// MarkNotified records day as the last notification date. A resource without
// settings gets the implicit defaults (enabled, global policy).
func (r *Resource) MarkNotified(day Date) {
	if r.Notification == nil {
		r.Notification = &NotificationSettings{Enabled: true, UseGlobal: true}
	}
	r.Notification.LastNotified = day.String()
}

// Validate checks the fields the rest of the system relies on.
func (r *Resource) Validate() error {
	var problems []string
	if strings.TrimSpace(r.Name) == "" {
		problems = append(problems, "name is required")
	}
	if !r.Category.Valid() {
		problems = append(problems, fmt.Sprintf("unknown category %q", r.Category))
	}
	if !r.BillingCycle.Valid() {
		problems = append(problems, fmt.Sprintf("unknown billing cycle %q", r.BillingCycle))
	}
	if r.Cost.IsNegative() {
		problems = append(problems, "cost must not be negative")
	}
	if n := r.Notification; n != nil && n.ReminderDays != nil {
		if *n.ReminderDays < 0 || *n.ReminderDays > MaxReminderDays {
			problems = append(problems, fmt.Sprintf("reminderDays must be within 0..%d", MaxReminderDays))
		}
	}
	if n := r.Notification; n != nil && n.LastNotified != "" {
		if _, err := ParseDate(n.LastNotified); err != nil {
			problems = append(problems, "lastNotified must be a YYYY-MM-DD date")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidResource, strings.Join(problems, "; "))
	}
	return nil
}

// MonthlyCost normalises the cost to a per-month figure. One-time and unset
// cycles contribute nothing.
func (r *Resource) MonthlyCost() decimal.Decimal {
	switch r.BillingCycle {
	case BillingMonthly:
		return r.Cost
	case BillingQuarterly:
		return r.Cost.Div(decimal.NewFromInt(3))
	case BillingYearly:
		return r.Cost.Div(decimal.NewFromInt(12))
	default:
		return decimal.Zero
	}
}

// FormatCost renders the cost with the currency symbol when present.
func (r *Resource) FormatCost() string {
	amount := r.Cost.StringFixed(2)
	if r.CurrencySymbol != "" {
		return r.CurrencySymbol + amount
	}
	if r.Currency != "" {
		return amount + " " + r.Currency
	}
	return amount
}
