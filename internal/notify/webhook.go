package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ykvlv/assetwatch/internal/domain"
)

const (
	defaultWebhookTimeout = 10 * time.Second
	userAgent             = "assetwatch/1"
)

// WebhookEnvelope is the JSON payload POSTed to webhook URLs. The URL itself
// is the shared secret; there is no signature.
type WebhookEnvelope struct {
	Event         string           `json:"event"`
	Resource      *domain.Resource `json:"resource"`
	DaysRemaining *int             `json:"days_remaining"`
	Message       string           `json:"message"`
	Changes       []domain.Change  `json:"changes,omitempty"`
}

// WebhookSender POSTs one envelope per dispatch. No retries.
type WebhookSender struct {
	httpClient *http.Client
}

// NewWebhookSender creates a WebhookSender with the given request timeout.
func NewWebhookSender(timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookSender{httpClient: &http.Client{Timeout: timeout}}
}

// Channel implements Sender.
func (ws *WebhookSender) Channel() Channel { return ChannelWebhook }

// Send implements Sender.
func (ws *WebhookSender) Send(ctx context.Context, target string, msg Message) error {
	if err := ValidateWebhookURL(target); err != nil {
		return err
	}
	body, err := json.Marshal(WebhookEnvelope{
		Event:         msg.Event,
		Resource:      msg.Resource,
		DaysRemaining: msg.DaysRemaining,
		Message:       msg.PlainText(),
		Changes:       msg.Changes,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := ws.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", RedactURL(target), err)
	}
	defer func() {
		// Drain and close body to reuse connections.
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// ValidateWebhookURL requires an absolute http(s) URL with a host.
func ValidateWebhookURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("webhook URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("webhook URL must include a host")
	}
	return nil
}

// RedactURL masks credentials in a URL for safe logging: the userinfo
// password, query values, and everything past the first path segment, since
// webhook paths often embed tokens.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.User = nil
	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			q.Set(key, "REDACTED")
		}
		u.RawQuery = q.Encode()
	}
	if len(u.Path) > 1 {
		u.Path = "/REDACTED"
		u.RawPath = ""
	}
	return u.String()
}
