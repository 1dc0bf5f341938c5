package ai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ykvlv/assetwatch/internal/domain"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// maxHistory bounds the conversation forwarded to a provider.
const maxHistory = 20

// upcomingWindow is how far ahead expiries are listed in prompts.
const upcomingWindow = 30

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is a system instruction plus a conversation.
type Prompt struct {
	System   string
	Messages []Message
}

// Flatten renders the prompt as one string for completion-style endpoints.
func (p Prompt) Flatten() string {
	var b strings.Builder
	if p.System != "" {
		b.WriteString(p.System)
		b.WriteString("\n\n")
	}
	for _, m := range p.Messages {
		switch m.Role {
		case RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString("User: ")
		}
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("Assistant:")
	return b.String()
}

const analystInstruction = `You are an infrastructure cost analyst. You review an inventory of servers, domains, phone numbers and accounts.
Be concise and concrete. Use short sections with bullet points. Do not invent resources that are not listed.`

const assistantInstruction = `You are the assistant of an asset tracking dashboard. Answer questions about the user's inventory below.
If the inventory does not contain the answer, say so. Keep answers short.`

// AnalysisPrompt asks for a review of the inventory as of today.
func AnalysisPrompt(resources []domain.Resource, today domain.Date) Prompt {
	var b strings.Builder
	b.WriteString(InventorySummary(resources, today))
	b.WriteString("\nPlease provide:\n")
	b.WriteString("1. A short overview of spending by category and currency.\n")
	b.WriteString("2. Resources that need attention soon (expiring or overdue).\n")
	b.WriteString("3. Concrete suggestions to reduce cost or consolidate providers.\n")
	return Prompt{
		System:   analystInstruction,
		Messages: []Message{{Role: RoleUser, Content: b.String()}},
	}
}

// ChatPrompt carries the inventory as context and the most recent part of the
// conversation. Unknown roles are treated as user messages.
func ChatPrompt(resources []domain.Resource, today domain.Date, history []Message) Prompt {
	msgs := make([]Message, 0, len(history))
	for _, m := range history {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		role := RoleUser
		if m.Role == RoleAssistant {
			role = RoleAssistant
		}
		msgs = append(msgs, Message{Role: role, Content: content})
	}
	if len(msgs) > maxHistory {
		msgs = msgs[len(msgs)-maxHistory:]
	}
	return Prompt{
		System:   assistantInstruction + "\n\n" + InventorySummary(resources, today),
		Messages: msgs,
	}
}

// InventorySummary renders counts, monthly cost per currency and upcoming
// expiries followed by one line per resource.
func InventorySummary(resources []domain.Resource, today domain.Date) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Today is %s. Inventory of %d resources.\n", today, len(resources))

	byCategory := map[domain.Category]int{}
	monthly := map[string]decimal.Decimal{}
	for i := range resources {
		r := &resources[i]
		byCategory[r.Category]++
		cur := r.Currency
		if cur == "" {
			cur = "?"
		}
		monthly[cur] = monthly[cur].Add(r.MonthlyCost())
	}

	b.WriteString("\nBy category:\n")
	for _, c := range []domain.Category{domain.CategoryVPS, domain.CategoryDomain, domain.CategoryPhoneNumber, domain.CategoryAccount} {
		if n := byCategory[c]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", c, n)
		}
	}

	b.WriteString("\nEstimated monthly cost:\n")
	currencies := make([]string, 0, len(monthly))
	for cur := range monthly {
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)
	for _, cur := range currencies {
		fmt.Fprintf(&b, "- %s %s\n", monthly[cur].StringFixed(2), cur)
	}

	type upcoming struct {
		name string
		days int
	}
	var soon []upcoming
	for i := range resources {
		days := domain.DaysRemaining(resources[i].ExpiryDate, today)
		if days != domain.NoExpiry && days <= upcomingWindow {
			soon = append(soon, upcoming{resources[i].Name, days})
		}
	}
	sort.SliceStable(soon, func(i, j int) bool { return soon[i].days < soon[j].days })
	if len(soon) > 0 {
		fmt.Fprintf(&b, "\nExpiring within %d days or overdue:\n", upcomingWindow)
		for _, u := range soon {
			if u.days < 0 {
				fmt.Fprintf(&b, "- %s: overdue by %d days\n", u.name, -u.days)
			} else {
				fmt.Fprintf(&b, "- %s: %d days left\n", u.name, u.days)
			}
		}
	}

	b.WriteString("\nResources:\n")
	for i := range resources {
		r := &resources[i]
		expiry := "no expiry"
		if r.ExpiryDate != nil {
			expiry = "expires " + r.ExpiryDate.String()
		}
		cycle := string(r.BillingCycle)
		if cycle == "" {
			cycle = "unset"
		}
		fmt.Fprintf(&b, "- %s [%s] provider=%s cost=%s cycle=%s %s\n",
			r.Name, r.Category, dashIfEmpty(r.Provider), r.FormatCost(), cycle, expiry)
	}
	return b.String()
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
