package telegram

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/assetwatch/internal/domain"
	"github.com/ykvlv/assetwatch/internal/notify"
)

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	_, _ = r.bot.Send(tgbotapi.NewMessage(chatID, text))
}

func (r *Router) sendHTML(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, chatID int64) {
	if r.authorized(ctx, chatID) {
		r.sendHTML(chatID, startAuthorizedText, mainMenuKeyboard())
		return
	}
	r.sendHTML(chatID, fmt.Sprintf(startText, chatID), nil)
}

func (r *Router) handleStatus(ctx context.Context, chatID int64) {
	resources, err := r.store.ListResources(ctx)
	if err != nil {
		r.log.Error("list resources failed", zap.Error(err))
		r.sendText(chatID, "Error reading resources.")
		return
	}
	r.sendHTML(chatID, statusBody(resources, domain.Today(r.now(), r.loc)), mainMenuKeyboard())
}

// statusBody lists resources due within statusWindow days, soonest first.
func statusBody(resources []domain.Resource, today domain.Date) string {
	type row struct {
		r    domain.Resource
		days int
	}
	var rows []row
	undated := 0
	for _, res := range resources {
		days := domain.DaysRemaining(res.ExpiryDate, today)
		if days == domain.NoExpiry {
			undated++
			continue
		}
		if days <= statusWindow {
			rows = append(rows, row{res, days})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].days < rows[j].days })

	var b strings.Builder
	if len(rows) == 0 {
		fmt.Fprintf(&b, statusEmpty, statusWindow)
	} else {
		fmt.Fprintf(&b, statusTitle, statusWindow)
		b.WriteString("\n")
		for _, rw := range rows {
			fmt.Fprintf(&b, "\n%s <b>%s</b> (%s): %s",
				statusIcon(rw.days),
				html.EscapeString(rw.r.Name),
				html.EscapeString(rw.r.ExpiryDate.String()),
				daysText(rw.days),
			)
		}
	}
	fmt.Fprintf(&b, statusTotals, len(resources), undated)
	return b.String()
}

func statusIcon(days int) string {
	switch {
	case days < 0:
		return "🔴"
	case days <= 3:
		return "🟠"
	default:
		return "🟢"
	}
}

func daysText(days int) string {
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days == -1:
		return "1 day overdue"
	case days < 0:
		return fmt.Sprintf("%d days overdue", -days)
	}
	return fmt.Sprintf("in %d days", days)
}

func (r *Router) handleCheck(ctx context.Context, chatID int64) {
	r.sendText(chatID, checkRunning)
	rep, err := r.sweeper.Run(ctx)
	if err != nil {
		r.log.Error("manual sweep failed", zap.Error(err))
		r.sendText(chatID, "Sweep failed, see server logs.")
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, checkResultFmt, rep.Processed, rep.NotificationsSent)
	for _, d := range rep.Details {
		fmt.Fprintf(&b, "\n• %s: %s via %s", html.EscapeString(d.Name), daysText(d.DaysRemaining), strings.Join(d.Channels, ", "))
	}
	r.sendHTML(chatID, b.String(), nil)
}

func (r *Router) handleTest(ctx context.Context, chatID int64) {
	s, err := r.store.GetSettings(ctx)
	if err != nil {
		r.log.Error("load settings failed", zap.Error(err))
		r.sendText(chatID, "Error reading settings.")
		return
	}
	sum := r.tester.SendTest(ctx, "", s)
	var b strings.Builder
	b.WriteString("Test results:")
	for _, res := range sum.Results {
		if res.Err != nil {
			fmt.Fprintf(&b, "\n❌ %s: %s", res.Channel, html.EscapeString(res.Err.Error()))
			continue
		}
		fmt.Fprintf(&b, "\n✅ %s", res.Channel)
	}
	if len(sum.Results) == 0 {
		b.WriteString("\nNo channel has a target configured.")
	}
	r.sendHTML(chatID, b.String(), nil)
}

func (r *Router) handleSettings(ctx context.Context, chatID int64) {
	s, err := r.store.GetSettings(ctx)
	if err != nil {
		r.log.Error("load settings failed", zap.Error(err))
		r.sendText(chatID, "Error opening settings.")
		return
	}
	body := fmt.Sprintf(settingsTitle,
		s.ReminderDays,
		onOff(s.Telegram.Enabled),
		onOff(s.Email.Enabled),
		onOff(s.Webhook.Enabled),
	)
	view := settingsView{telegram: s.Telegram.Enabled, email: s.Email.Enabled, webhook: s.Webhook.Enabled}
	r.sendHTML(chatID, body, settingsInlineKeyboard(view))
}

// --- Reminder days flow ---

func (r *Router) askReminderPresets(ctx context.Context, chatID int64, cbID string) {
	_ = r.answerCallback(cbID, "")
	msg := tgbotapi.NewMessage(chatID, "How many days before expiry should I remind you? (or Custom)")
	msg.ReplyMarkup = reminderPresetsKeyboard()
	_, _ = r.bot.Send(msg)
}

func (r *Router) handleReminderCallback(ctx context.Context, chatID int64, data string, cbID string) {
	_ = r.answerCallback(cbID, "")
	if data == "reminder:custom" {
		r.sendText(chatID, fmt.Sprintf("Enter the number of days (0–%d):", domain.MaxReminderDays))
		r.setPending(chatID, pendingReminderDays)
		return
	}
	r.applyReminderDays(ctx, chatID, strings.TrimPrefix(data, "reminder:"))
}

func (r *Router) applyReminderDays(ctx context.Context, chatID int64, raw string) {
	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || days < 0 || days > domain.MaxReminderDays {
		r.sendText(chatID, fmt.Sprintf("Invalid number. Use a whole number between 0 and %d.", domain.MaxReminderDays))
		return
	}
	err = r.updateSettings(ctx, func(s *domain.Settings) { s.ReminderDays = days })
	if err != nil {
		r.log.Error("update reminder days failed", zap.Error(err))
		r.sendText(chatID, "Could not save reminder days.")
		return
	}
	r.sendText(chatID, fmt.Sprintf("Reminder days updated: %d", days))
}

// --- Channel toggles ---

func (r *Router) handleToggleCallback(ctx context.Context, chatID int64, data string, cbID string) {
	ch, ok := notify.ParseChannel(strings.TrimPrefix(data, "toggle:"))
	if !ok {
		_ = r.answerCallback(cbID, "Unknown channel")
		return
	}
	var enabled bool
	err := r.updateSettings(ctx, func(s *domain.Settings) {
		switch ch {
		case notify.ChannelTelegram:
			s.Telegram.Enabled = !s.Telegram.Enabled
			enabled = s.Telegram.Enabled
		case notify.ChannelEmail:
			s.Email.Enabled = !s.Email.Enabled
			enabled = s.Email.Enabled
		case notify.ChannelWebhook:
			s.Webhook.Enabled = !s.Webhook.Enabled
			enabled = s.Webhook.Enabled
		}
	})
	if err != nil {
		r.log.Error("toggle channel failed", zap.Error(err))
		_ = r.answerCallback(cbID, "Could not save")
		return
	}
	_ = r.answerCallback(cbID, fmt.Sprintf("%s %s", ch, onOff(enabled)))
	r.handleSettings(ctx, chatID)
}

func (r *Router) updateSettings(ctx context.Context, mutate func(*domain.Settings)) error {
	s, err := r.store.GetSettings(ctx)
	if err != nil {
		return err
	}
	mutate(&s)
	if err := s.Validate(); err != nil {
		return err
	}
	return r.store.SaveSettings(ctx, s)
}

// --- Free-form dispatcher (for all "Custom" inputs) ---

func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	switch r.getPending(chatID) {
	case pendingReminderDays:
		r.clearPending(chatID)
		r.applyReminderDays(ctx, chatID, text)
	default:
		// No pending flow: ignore free-form message
	}
}
