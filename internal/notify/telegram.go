package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const defaultTelegramTimeout = 15 * time.Second

// pollSlack is added to the long-poll timeout so getUpdates returns before
// the HTTP client gives up.
const pollSlack = 10 * time.Second

// TelegramSender sends HTML messages through the Bot API. The bot token is
// process configuration; the chat id comes from global settings.
type TelegramSender struct {
	token    string
	endpoint string
	client   *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewTelegramSender creates a sender. The bot client is created on first use,
// so a missing or bad token surfaces as a send failure instead of a startup error.
func NewTelegramSender(token, endpoint string, client *http.Client) *TelegramSender {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTelegramTimeout}
	}
	return &TelegramSender{token: token, endpoint: endpoint, client: client}
}

// Channel implements Sender.
func (ts *TelegramSender) Channel() Channel { return ChannelTelegram }

// BotAPI returns the shared bot client, creating it if needed.
func (ts *TelegramSender) BotAPI() (*tgbotapi.BotAPI, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.bot != nil {
		return ts.bot, nil
	}
	if ts.token == "" {
		return nil, fmt.Errorf("telegram: %w", ErrNotConfigured)
	}
	bot, err := tgbotapi.NewBotAPIWithClient(ts.token, ts.endpoint, ts.client)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}
	bot.Debug = false
	ts.bot = bot
	return bot, nil
}

// PollingBot returns a separate bot client for long polling with the given
// getUpdates timeout. The send client's timeout is shorter than a long poll.
func (ts *TelegramSender) PollingBot(pollTimeout time.Duration) (*tgbotapi.BotAPI, error) {
	if ts.token == "" {
		return nil, fmt.Errorf("telegram: %w", ErrNotConfigured)
	}
	client := *ts.client
	client.Timeout = pollTimeout + pollSlack
	bot, err := tgbotapi.NewBotAPIWithClient(ts.token, ts.endpoint, &client)
	if err != nil {
		return nil, fmt.Errorf("telegram: init polling bot: %w", err)
	}
	return bot, nil
}

// Send implements Sender.
func (ts *TelegramSender) Send(ctx context.Context, chatID string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bot, err := ts.BotAPI()
	if err != nil {
		return err
	}
	cfg := NewTelegramMessage(chatID, msg.TelegramHTML())
	if _, err := bot.Send(cfg); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}

// NewTelegramMessage addresses a numeric chat id or an @channel username.
func NewTelegramMessage(chatID, htmlText string) tgbotapi.MessageConfig {
	chatID = strings.TrimSpace(chatID)
	var cfg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		cfg = tgbotapi.NewMessage(id, htmlText)
	} else {
		cfg = tgbotapi.NewMessageToChannel(chatID, htmlText)
	}
	cfg.ParseMode = tgbotapi.ModeHTML
	cfg.DisableWebPagePreview = true
	return cfg
}
