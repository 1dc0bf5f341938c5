package domain

import "fmt"

// DefaultReminderDays is the global lead time used before settings are saved.
const DefaultReminderDays = 7

type TelegramSettings struct {
	Enabled bool   `json:"enabled"`
	ChatID  string `json:"chatId"`
}

type EmailSettings struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
}

type WebhookSettings struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

// Settings is the process-wide notification policy. It is loaded once per
// sweep or request and passed by value.
type Settings struct {
	ReminderDays int              `json:"reminderDays"`
	Telegram     TelegramSettings `json:"telegram"`
	Email        EmailSettings    `json:"email"`
	Webhook      WebhookSettings  `json:"webhook"`
}

// DefaultSettings returns settings with every channel off.
func DefaultSettings() Settings {
	return Settings{ReminderDays: DefaultReminderDays}
}

func (s Settings) Validate() error {
	if s.ReminderDays < 0 || s.ReminderDays > MaxReminderDays {
		return fmt.Errorf("reminderDays must be within 0..%d", MaxReminderDays)
	}
	return nil
}
