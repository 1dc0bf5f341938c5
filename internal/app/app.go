package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ykvlv/assetwatch/internal/ai"
	"github.com/ykvlv/assetwatch/internal/config"
	"github.com/ykvlv/assetwatch/internal/domain"
	"github.com/ykvlv/assetwatch/internal/httpapi"
	"github.com/ykvlv/assetwatch/internal/notify"
	"github.com/ykvlv/assetwatch/internal/scheduler"
	"github.com/ykvlv/assetwatch/internal/store"
	"github.com/ykvlv/assetwatch/internal/telegram"
)

const (
	shutdownTimeout = 10 * time.Second
	limiterIdle     = 30 * time.Minute
	pollTimeout     = 30 * time.Second

	// AI requests may take several provider attempts; the fallback run stops
	// early enough to still write its error body.
	httpWriteTimeout = 3 * time.Minute
	aiBudget         = httpWriteTimeout - 15*time.Second
)

type App struct {
	cfg config.Config
	log *zap.Logger
	loc *time.Location

	repo       *store.SQLiteRepo
	tgSender   *notify.TelegramSender
	dispatcher *notify.Dispatcher
	sweeper    *scheduler.Sweeper
	assistant  *ai.Service
}

// New opens the database and builds every component. Close releases them.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", cfg.DefaultTZ, err)
	}

	repo, err := store.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	tgSender := notify.NewTelegramSender(cfg.Telegram.BotToken, cfg.Telegram.APIEndpoint, nil)
	emailSender, err := notify.NewEmailSender(notify.EmailConfig{
		APIURL: cfg.Email.APIURL,
		APIKey: cfg.Email.APIKey,
		From:   cfg.Email.From,
	}, nil)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	dispatcher := notify.NewDispatcher(log, tgSender, emailSender, notify.NewWebhookSender(cfg.Webhook.Timeout))

	sweeper := scheduler.NewSweeper(repo, dispatcher, log, scheduler.Options{
		Location: loc,
		Workers:  cfg.SweepWorkers,
		Rules:    domain.Rules{OverdueRepeatDays: cfg.OverdueRepeatDays},
	})

	clientOpts := ai.ClientOptions{
		Timeout:      cfg.AI.RequestTimeout,
		Retries:      cfg.AI.Retries,
		RetryBackoff: cfg.AI.RetryBackoff,
	}
	chain := ai.NewChain(log, ai.NewOpenAIClient(clientOpts), ai.NewGeminiClient(clientOpts))
	assistant := ai.NewService(ai.ProvidersFromConfig(cfg.AI), chain, aiBudget)

	return &App{
		cfg:        cfg,
		log:        log,
		loc:        loc,
		repo:       repo,
		tgSender:   tgSender,
		dispatcher: dispatcher,
		sweeper:    sweeper,
		assistant:  assistant,
	}, nil
}

// Store exposes the repository for the CLI import and export commands.
func (a *App) Store() store.Repo { return a.repo }

// Sweep runs one sweep and returns its report.
func (a *App) Sweep(ctx context.Context) (scheduler.Report, error) {
	return a.sweeper.Run(ctx)
}

func (a *App) Close() error {
	return a.repo.Close()
}

// Run serves HTTP, runs the cron trigger and, when enabled, the Telegram
// admin bot until a shutdown signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := scheduler.New(a.sweeper, a.cfg.SweepCron, a.loc, a.log)
	if err != nil {
		return err
	}

	if a.cfg.AdminToken == "" {
		a.log.Warn("ADMIN_TOKEN is empty, the API is open to anyone who can reach it")
	}
	api := httpapi.New(a.log, a.repo, a.dispatcher, a.sweeper, a.assistant, httpapi.Options{
		AdminToken:      a.cfg.AdminToken,
		CORSOrigins:     a.cfg.CORSOrigins,
		AIRatePerMinute: a.cfg.AI.RatePerMinute,
		Location:        a.loc,
		Credentials: httpapi.Credentials{
			Telegram: a.cfg.Telegram.BotToken != "",
			Email:    a.cfg.Email.APIKey != "" && a.cfg.Email.From != "",
		},
	})
	httpSrv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      httpWriteTimeout,
	}

	a.log.Info("starting assetwatch",
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("tz", a.loc.String()),
		zap.String("cron", a.cfg.SweepCron),
		zap.Strings("ai_providers", a.assistant.Providers()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutdown signal received")
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shCtx); err != nil {
			a.log.Warn("http server shutdown error", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})
	g.Go(func() error {
		t := time.NewTicker(limiterIdle)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				api.EvictIdleLimiters(limiterIdle)
			}
		}
	})
	if a.cfg.Telegram.Polling {
		g.Go(func() error {
			a.runBot(gctx)
			return nil
		})
	}
	return g.Wait()
}

// runBot long-polls the Bot API for admin commands. A bad token is logged and
// the rest of the service keeps running.
func (a *App) runBot(ctx context.Context) {
	bot, err := a.tgSender.PollingBot(pollTimeout)
	if err != nil {
		a.log.Error("telegram bot disabled", zap.Error(err))
		return
	}
	router := telegram.NewRouter(bot, a.log, a.repo, a.sweeper, a.dispatcher, a.loc)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(pollTimeout / time.Second)
	updates := bot.GetUpdatesChan(u)
	a.log.Info("telegram polling started", zap.String("bot", bot.Self.UserName))

	go func() {
		<-ctx.Done()
		bot.StopReceivingUpdates()
	}()
	router.Listen(ctx, updates)
}
