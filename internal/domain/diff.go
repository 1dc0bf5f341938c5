package domain

import "strconv"

// ChangeAction names a resource lifecycle event.
type ChangeAction string

const (
	ActionCreated ChangeAction = "created"
	ActionUpdated ChangeAction = "updated"
	ActionDeleted ChangeAction = "deleted"
)

// Change is one field difference between two versions of a resource.
type Change struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Diff lists user-visible field changes from old to updated. Timestamps and the
// lastNotified marker are not user edits and are left out.
func Diff(old, updated Resource) []Change {
	var out []Change
	add := func(field, a, b string) {
		if a != b {
			out = append(out, Change{Field: field, Old: a, New: b})
		}
	}
	add("name", old.Name, updated.Name)
	add("provider", old.Provider, updated.Provider)
	add("category", string(old.Category), string(updated.Category))
	add("currency", old.Currency, updated.Currency)
	if !old.Cost.Equal(updated.Cost) {
		out = append(out, Change{Field: "cost", Old: old.Cost.String(), New: updated.Cost.String()})
	}
	add("billingCycle", string(old.BillingCycle), string(updated.BillingCycle))
	add("expiryDate", dateString(old.ExpiryDate), dateString(updated.ExpiryDate))
	add("startDate", dateString(old.StartDate), dateString(updated.StartDate))
	add("notes", old.Notes, updated.Notes)
	add("notifications", notificationSummary(old.Notification), notificationSummary(updated.Notification))
	return out
}

func dateString(d *Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func notificationSummary(n *NotificationSettings) string {
	if n == nil {
		return "global"
	}
	if !n.Enabled {
		return "disabled"
	}
	if n.UseGlobal {
		return "global"
	}
	s := "custom"
	if n.ReminderDays != nil {
		s += " " + strconv.Itoa(*n.ReminderDays) + "d"
	}
	if c := n.Channels; c != nil {
		if c.Telegram {
			s += " telegram"
		}
		if c.Email {
			s += " email"
		}
		if c.Webhook {
			s += " webhook"
		}
	}
	return s
}
