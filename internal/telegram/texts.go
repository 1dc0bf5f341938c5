package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// UI texts in English
const (
	startText = "👋 I watch your servers, domains and accounts and remind you before they expire.\n\n" +
		"Your chat id is <code>%d</code>. Put it into the Telegram settings to receive reminders and use the commands below."
	startAuthorizedText = "👋 This chat receives expiry reminders.\n\n" +
		"/status shows what expires soon, /check runs the reminder sweep now, /settings changes the global policy."
	statusTitle    = "🧾 <b>Expiring within %d days</b>"
	statusEmpty    = "Nothing expires within %d days. 🎉"
	statusTotals   = "\n\n%d resources tracked, %d without expiry date."
	settingsTitle  = "⚙️ <b>Global notification settings</b>\n\n• Reminder days: %d\n• Telegram: %s\n• Email: %s\n• Webhook: %s"
	checkRunning   = "⏳ Running the reminder sweep…"
	checkResultFmt = "✅ Sweep done: %d processed, %d notified."
)

// statusWindow is the look-ahead of /status.
const statusWindow = 30

// mainMenuKeyboard builds the reply keyboard with the admin commands.
func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/status"),
			tgbotapi.NewKeyboardButton("/check"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/settings"),
			tgbotapi.NewKeyboardButton("/test"),
		),
	)
}

// Inline keyboards
func settingsInlineKeyboard(s settingsView) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏲️ Reminder days", "set_reminder"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("Telegram", s.telegram), "toggle:telegram"),
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("Email", s.email), "toggle:email"),
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("Webhook", s.webhook), "toggle:webhook"),
		),
	)
}

func reminderPresetsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("3", "reminder:3"),
			tgbotapi.NewInlineKeyboardButtonData("7", "reminder:7"),
			tgbotapi.NewInlineKeyboardButtonData("14", "reminder:14"),
			tgbotapi.NewInlineKeyboardButtonData("30", "reminder:30"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✍️ Custom…", "reminder:custom"),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "back_to_menu"),
		),
	)
}

type settingsView struct {
	telegram, email, webhook bool
}

func toggleLabel(name string, on bool) string {
	if on {
		return "✅ " + name
	}
	return "⏸ " + name
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
