package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/ykvlv/assetwatch/internal/domain"
)

// Webhook event names.
const (
	EventExpiryReminder = "expiry_reminder"
	EventTest           = "test"
)

// Line is one labelled fact in a message.
type Line struct {
	Label string
	Value string
}

// Message is a transport-neutral notification. Senders render it for their
// medium; user-controlled values are escaped by the HTML renderers only.
type Message struct {
	Event         string
	Subject       string
	Title         string
	Lines         []Line
	Changes       []domain.Change
	Notes         string
	Urgent        bool
	Resource      *domain.Resource
	DaysRemaining *int
}

// ReminderMessage builds the expiry reminder for r.
func ReminderMessage(r domain.Resource, daysRemaining int) Message {
	days := daysRemaining
	m := Message{
		Event:         EventExpiryReminder,
		Title:         reminderTitle(r.Name, daysRemaining),
		Urgent:        daysRemaining <= 3,
		Resource:      &r,
		DaysRemaining: &days,
		Notes:         r.Notes,
	}
	m.Subject = "[assetwatch] " + m.Title
	m.Lines = resourceLines(r)
	m.Lines = append(m.Lines, Line{Label: "Days remaining", Value: fmt.Sprintf("%d", daysRemaining)})
	return m
}

func reminderTitle(name string, days int) string {
	switch {
	case days > 1:
		return fmt.Sprintf("%s expires in %d days", name, days)
	case days == 1:
		return name + " expires tomorrow"
	case days == 0:
		return name + " expires today"
	case days == -1:
		return name + " expired yesterday"
	default:
		return fmt.Sprintf("%s expired %d days ago", name, -days)
	}
}

// ChangeMessage builds the notification for a create/update/delete.
func ChangeMessage(action domain.ChangeAction, r domain.Resource, changes []domain.Change) Message {
	m := Message{
		Event:    "resource_" + string(action),
		Title:    fmt.Sprintf("Resource %s: %s", action, r.Name),
		Resource: &r,
		Changes:  changes,
	}
	m.Subject = "[assetwatch] " + m.Title
	m.Lines = resourceLines(r)
	return m
}

// TestMessage is sent by the settings channel test.
func TestMessage() Message {
	return Message{
		Event:   EventTest,
		Subject: "[assetwatch] Test notification",
		Title:   "Test notification",
		Lines:   []Line{{Label: "Status", Value: "This channel is configured correctly."}},
	}
}

func resourceLines(r domain.Resource) []Line {
	var lines []Line
	if r.Provider != "" {
		lines = append(lines, Line{Label: "Provider", Value: r.Provider})
	}
	if r.Category != "" {
		lines = append(lines, Line{Label: "Category", Value: string(r.Category)})
	}
	if r.ExpiryDate != nil {
		lines = append(lines, Line{Label: "Expiry date", Value: r.ExpiryDate.String()})
	}
	cost := r.FormatCost()
	if r.BillingCycle != domain.BillingUnset {
		cost += " / " + string(r.BillingCycle)
	}
	lines = append(lines, Line{Label: "Cost", Value: cost})
	return lines
}

// PlainText renders the message without markup.
func (m Message) PlainText() string {
	var b strings.Builder
	b.WriteString(m.Title)
	for _, l := range m.Lines {
		fmt.Fprintf(&b, "\n%s: %s", l.Label, l.Value)
	}
	if len(m.Changes) > 0 {
		b.WriteString("\nChanges:")
		for _, c := range m.Changes {
			fmt.Fprintf(&b, "\n- %s: %s -> %s", c.Field, dash(c.Old), dash(c.New))
		}
	}
	if m.Notes != "" {
		b.WriteString("\n" + m.Notes)
	}
	return b.String()
}

// TelegramHTML renders the message for Telegram's HTML parse mode.
func (m Message) TelegramHTML() string {
	var b strings.Builder
	icon := "🔔"
	if m.Urgent {
		icon = "⚠️"
	}
	fmt.Fprintf(&b, "%s <b>%s</b>\n", icon, html.EscapeString(m.Title))
	for _, l := range m.Lines {
		fmt.Fprintf(&b, "\n%s: <b>%s</b>", html.EscapeString(l.Label), html.EscapeString(l.Value))
	}
	if len(m.Changes) > 0 {
		b.WriteString("\n\n<b>Changes</b>")
		for _, c := range m.Changes {
			fmt.Fprintf(&b, "\n• <code>%s</code>: %s → %s",
				html.EscapeString(c.Field), html.EscapeString(dash(c.Old)), html.EscapeString(dash(c.New)))
		}
	}
	if m.Notes != "" {
		fmt.Fprintf(&b, "\n\n<i>%s</i>", html.EscapeString(m.Notes))
	}
	return b.String()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
