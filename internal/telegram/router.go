package telegram

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/assetwatch/internal/domain"
	"github.com/ykvlv/assetwatch/internal/notify"
	"github.com/ykvlv/assetwatch/internal/scheduler"
)

// Pending state keys used in conversational flows.
const (
	pendingReminderDays = "await_reminder_days"
)

// Bot is the part of tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Store is the persistence the admin commands need.
type Store interface {
	ListResources(ctx context.Context) ([]domain.Resource, error)
	GetSettings(ctx context.Context) (domain.Settings, error)
	SaveSettings(ctx context.Context, s domain.Settings) error
}

// Sweeper runs a notification sweep on demand.
type Sweeper interface {
	Run(ctx context.Context) (scheduler.Report, error)
}

// Tester sends a test notification. notify.Dispatcher implements it.
type Tester interface {
	SendTest(ctx context.Context, ch notify.Channel, s domain.Settings) notify.Summary
}

// Router wires Telegram updates to admin handlers. Only the chat configured
// in the global Telegram settings may run commands.
type Router struct {
	bot     Bot
	log     *zap.Logger
	store   Store
	sweeper Sweeper
	tester  Tester
	loc     *time.Location
	now     func() time.Time
	state   map[int64]string // chatID -> pending state
	mu      sync.RWMutex
}

// NewRouter creates a new Telegram router.
func NewRouter(bot Bot, log *zap.Logger, store Store, sweeper Sweeper, tester Tester, loc *time.Location) *Router {
	if loc == nil {
		loc = time.UTC
	}
	return &Router{
		bot:     bot,
		log:     log.Named("telegram"),
		store:   store,
		sweeper: sweeper,
		tester:  tester,
		loc:     loc,
		now:     time.Now,
		state:   make(map[int64]string),
	}
}

// setPending sets a pending state for a chat (non-persistent, in-memory).
func (r *Router) setPending(chatID int64, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[chatID] = s
}

// getPending returns current pending state for a chat.
func (r *Router) getPending(chatID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[chatID]
}

// clearPending clears a pending state for a chat.
func (r *Router) clearPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, chatID)
}

// Listen handles updates until ctx is canceled or the channel closes.
func (r *Router) Listen(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			r.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate routes a single update to appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		msg := upd.Message
		chatID := msg.Chat.ID
		text := strings.TrimSpace(msg.Text)

		// /start is open so that an admin can learn the chat id to configure.
		if strings.HasPrefix(text, "/start") {
			r.handleStart(ctx, chatID)
			return
		}
		if !r.authorized(ctx, chatID) {
			r.log.Debug("ignoring message from unauthorized chat", zap.Int64("chat_id", chatID))
			return
		}

		switch {
		case strings.HasPrefix(text, "/status"):
			r.handleStatus(ctx, chatID)
		case strings.HasPrefix(text, "/check"):
			r.handleCheck(ctx, chatID)
		case strings.HasPrefix(text, "/settings"):
			r.handleSettings(ctx, chatID)
		case strings.HasPrefix(text, "/test"):
			r.handleTest(ctx, chatID)
		default:
			r.handleFreeForm(ctx, chatID, text)
		}
		return
	}

	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if cb.Message == nil {
			return
		}
		data := cb.Data
		chatID := cb.Message.Chat.ID
		if !r.authorized(ctx, chatID) {
			_ = r.answerCallback(cb.ID, "Not allowed")
			return
		}

		switch {
		case data == "set_reminder":
			r.askReminderPresets(ctx, chatID, cb.ID)
		case strings.HasPrefix(data, "reminder:"):
			r.handleReminderCallback(ctx, chatID, data, cb.ID)
		case strings.HasPrefix(data, "toggle:"):
			r.handleToggleCallback(ctx, chatID, data, cb.ID)
		case data == "back_to_menu":
			_ = r.answerCallback(cb.ID, "")
			r.handleSettings(ctx, chatID)
		default:
			// Unknown callback: ignore silently
		}
	}
}

// authorized reports whether chatID is the configured admin chat.
func (r *Router) authorized(ctx context.Context, chatID int64) bool {
	s, err := r.store.GetSettings(ctx)
	if err != nil {
		r.log.Error("load settings failed", zap.Error(err))
		return false
	}
	return strings.TrimSpace(s.Telegram.ChatID) == strconv.FormatInt(chatID, 10)
}
