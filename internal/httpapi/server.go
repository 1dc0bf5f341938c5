// Package httpapi is the HTTP surface: resource CRUD, settings, the manual
// sweep trigger, channel tests and the AI endpoints.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ykvlv/assetwatch/internal/ai"
	"github.com/ykvlv/assetwatch/internal/domain"
	"github.com/ykvlv/assetwatch/internal/notify"
	"github.com/ykvlv/assetwatch/internal/scheduler"
	"github.com/ykvlv/assetwatch/internal/store"
)

// Store is the persistence used by the handlers.
type Store interface {
	store.ResourceStore
	store.SettingsStore
}

// Notifier sends change and test notifications.
type Notifier interface {
	NotifyChange(ctx context.Context, action domain.ChangeAction, r domain.Resource, s domain.Settings, changes []domain.Change) notify.Summary
	SendTest(ctx context.Context, ch notify.Channel, s domain.Settings) notify.Summary
}

// Sweeper runs the notification sweep.
type Sweeper interface {
	Run(ctx context.Context) (scheduler.Report, error)
}

// Assistant answers AI requests. ai.Service implements it.
type Assistant interface {
	Providers() []string
	Analyze(ctx context.Context, resources []domain.Resource, today domain.Date, pref ai.Preference) (ai.Result, error)
	Chat(ctx context.Context, resources []domain.Resource, today domain.Date, history []ai.Message, pref ai.Preference) (ai.Result, error)
}

// Credentials reports which process-level channel credentials exist. The
// values themselves never leave the process.
type Credentials struct {
	Telegram bool `json:"telegram"`
	Email    bool `json:"email"`
}

// Options configures the Server.
type Options struct {
	AdminToken      string
	CORSOrigins     []string
	AIRatePerMinute int
	Location        *time.Location
	Credentials     Credentials
	Now             func() time.Time
}

// Server holds the handler dependencies.
type Server struct {
	log       *zap.Logger
	store     Store
	notifier  Notifier
	sweeper   Sweeper
	assistant Assistant
	opts      Options
	aiLimiter *keyedLimiter
}

func New(log *zap.Logger, st Store, notifier Notifier, sweeper Sweeper, assistant Assistant, opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{
		log:       log.Named("http"),
		store:     st,
		notifier:  notifier,
		sweeper:   sweeper,
		assistant: assistant,
		opts:      opts,
		aiLimiter: newKeyedLimiter(opts.AIRatePerMinute),
	}
}

func (s *Server) today() domain.Date {
	return domain.Today(s.opts.Now(), s.opts.Location)
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireToken)

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", s.handleListResources)
			r.Post("/", s.handleCreateResource)
			r.Get("/export", s.handleExport)
			r.Post("/import", s.handleImport)
			r.Get("/{id}", s.handleGetResource)
			r.Put("/{id}", s.handleUpdateResource)
			r.Delete("/{id}", s.handleDeleteResource)
		})

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleSaveSettings)

		r.Post("/notifications/check", s.handleCheck)
		r.Post("/notifications/test", s.handleTest)

		r.Route("/ai", func(r chi.Router) {
			r.Use(s.rateLimitAI)
			r.Get("/providers", s.handleProviders)
			r.Post("/analyze", s.handleAnalyze)
			r.Post("/chat", s.handleChat)
		})
	})
	return r
}

// EvictIdleLimiters drops per-client AI limiters unused for maxAge.
func (s *Server) EvictIdleLimiters(maxAge time.Duration) {
	s.aiLimiter.Evict(maxAge)
}
