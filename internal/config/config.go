package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	HTTPAddr    string   `envconfig:"HTTP_ADDR" default:":8080"`
	DBPath      string   `envconfig:"DB_PATH" default:"./data/assetwatch.db"`
	DefaultTZ   string   `envconfig:"DEFAULT_TZ" default:"UTC"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	LogFile     string   `envconfig:"LOG_FILE"`                 // optional rotated copy of the log
	AdminToken  string   `envconfig:"ADMIN_TOKEN"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`

	SweepCron         string `envconfig:"SWEEP_CRON" default:"0 9 * * *"`
	SweepWorkers      int    `envconfig:"SWEEP_WORKERS" default:"1"`
	OverdueRepeatDays int    `envconfig:"OVERDUE_REPEAT_DAYS" default:"0"`

	// Embedded so that envconfig keeps the flat variable names.
	Telegram
	Email
	Webhook
	AI
}

type Telegram struct {
	BotToken    string `envconfig:"TELEGRAM_BOT_TOKEN"`
	APIEndpoint string `envconfig:"TELEGRAM_API_ENDPOINT" default:"https://api.telegram.org/bot%s/%s"`
	Polling     bool   `envconfig:"TELEGRAM_POLLING" default:"false"`
}

type Email struct {
	APIKey string `envconfig:"RESEND_API_KEY"`
	From   string `envconfig:"EMAIL_FROM"`
	APIURL string `envconfig:"EMAIL_API_URL" default:"https://api.resend.com/emails"`
}

type Webhook struct {
	Timeout time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s"`
}

// CustomEndpoint is an OpenAI-compatible endpoint from CUSTOM_AI_ENDPOINTS.
type CustomEndpoint struct {
	ID     string
	URL    string
	APIKey string
	Models []string
}

type AI struct {
	OpenAIKey       string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OpenAIModel     string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	DeepSeekKey     string `envconfig:"DEEPSEEK_API_KEY"`
	DeepSeekURL     string `envconfig:"DEEPSEEK_BASE_URL" default:"https://api.deepseek.com/v1"`
	DeepSeekModel   string `envconfig:"DEEPSEEK_MODEL" default:"deepseek-chat"`
	OpenRouterKey   string `envconfig:"OPENROUTER_API_KEY"`
	OpenRouterURL   string `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1"`
	OpenRouterModel string `envconfig:"OPENROUTER_MODEL" default:"openai/gpt-4o-mini"`
	GeminiKey       string `envconfig:"GEMINI_API_KEY"`
	GeminiModel     string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	CustomEndpointsRaw string `envconfig:"CUSTOM_AI_ENDPOINTS"`
	DefaultProvider    string `envconfig:"AI_DEFAULT_PROVIDER"`
	AppURL             string `envconfig:"APP_URL"`

	RequestTimeout time.Duration `envconfig:"AI_TIMEOUT" default:"45s"`
	Retries        int           `envconfig:"AI_RETRIES" default:"1"`
	RetryBackoff   time.Duration `envconfig:"AI_RETRY_BACKOFF" default:"800ms"`
	RatePerMinute  int           `envconfig:"AI_RATE_PER_MINUTE" default:"20"`

	CustomEndpoints []CustomEndpoint `ignored:"true"`
}

// AIProviderIDs are the provider ids AI_DEFAULT_PROVIDER accepts.
var AIProviderIDs = []string{"openai", "deepseek", "openrouter", "gemini", "custom"}

// Load reads an optional .env file, then environment variables into Config.
func Load() (Config, error) {
	// A missing .env is normal in containers.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	endpoints, err := ParseCustomEndpoints(cfg.AI.CustomEndpointsRaw)
	if err != nil {
		return cfg, err
	}
	cfg.AI.CustomEndpoints = endpoints

	cfg.AI.DefaultProvider = strings.ToLower(strings.TrimSpace(cfg.AI.DefaultProvider))
	if cfg.AI.DefaultProvider != "" && !slices.Contains(AIProviderIDs, cfg.AI.DefaultProvider) {
		return cfg, fmt.Errorf("unknown AI_DEFAULT_PROVIDER %q, expected one of %s",
			cfg.AI.DefaultProvider, strings.Join(AIProviderIDs, ", "))
	}

	if cfg.SweepWorkers < 1 {
		cfg.SweepWorkers = 1
	}
	if cfg.AI.Retries < 0 {
		cfg.AI.Retries = 0
	}
	return cfg, nil
}

// ParseCustomEndpoints parses "id|url|key|defaultModel" entries separated by
// newlines or semicolons. defaultModel may list several models separated by
// commas. Blank lines and lines starting with # are skipped.
func ParseCustomEndpoints(raw string) ([]CustomEndpoint, error) {
	raw = strings.ReplaceAll(raw, ";", "\n")
	seen := make(map[string]bool)
	var out []CustomEndpoint
	for i, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 2 || len(parts) > 4 {
			return nil, fmt.Errorf("custom AI endpoint %d: expected id|url|key|defaultModel", i+1)
		}
		for len(parts) < 4 {
			parts = append(parts, "")
		}
		ep := CustomEndpoint{
			ID:     strings.TrimSpace(parts[0]),
			URL:    strings.TrimSpace(parts[1]),
			APIKey: strings.TrimSpace(parts[2]),
		}
		if ep.ID == "" || ep.URL == "" {
			return nil, fmt.Errorf("custom AI endpoint %d: id and url are required", i+1)
		}
		if !strings.HasPrefix(ep.URL, "http://") && !strings.HasPrefix(ep.URL, "https://") {
			return nil, fmt.Errorf("custom AI endpoint %q: url must be http(s)", ep.ID)
		}
		if seen[ep.ID] {
			return nil, fmt.Errorf("custom AI endpoint %q: duplicate id", ep.ID)
		}
		seen[ep.ID] = true
		for _, m := range strings.Split(parts[3], ",") {
			if m = strings.TrimSpace(m); m != "" {
				ep.Models = append(ep.Models, m)
			}
		}
		out = append(out, ep)
	}
	return out, nil
}

// Location resolves DefaultTZ.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.DefaultTZ)
}
