package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"net/http"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/ykvlv/assetwatch/assets"
)

const defaultEmailTimeout = 15 * time.Second

// EmailConfig holds the process-wide transactional email credentials.
type EmailConfig struct {
	APIURL string
	APIKey string
	From   string
}

// EmailSender posts messages to a Resend-compatible HTTP email API.
type EmailSender struct {
	cfg        EmailConfig
	httpClient *http.Client
	html       *htmltemplate.Template
	text       *texttemplate.Template
}

// NewEmailSender parses the embedded templates. Missing credentials are not an
// error here; Send reports ErrNotConfigured instead.
func NewEmailSender(cfg EmailConfig, client *http.Client) (*EmailSender, error) {
	if client == nil {
		client = &http.Client{Timeout: defaultEmailTimeout}
	}
	html, err := htmltemplate.ParseFS(assets.TemplatesFS, assets.EmailHTML)
	if err != nil {
		return nil, fmt.Errorf("parse email html template: %w", err)
	}
	text, err := texttemplate.ParseFS(assets.TemplatesFS, assets.EmailText)
	if err != nil {
		return nil, fmt.Errorf("parse email text template: %w", err)
	}
	return &EmailSender{cfg: cfg, httpClient: client, html: html, text: text}, nil
}

// Channel implements Sender.
func (es *EmailSender) Channel() Channel { return ChannelEmail }

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

type emailErrorResponse struct {
	Message string `json:"message"`
}

// Render produces the HTML and plain-text bodies. html/template escapes every
// user-controlled value.
func (es *EmailSender) Render(msg Message) (htmlBody, textBody string, err error) {
	var hb, tb bytes.Buffer
	if err := es.html.Execute(&hb, msg); err != nil {
		return "", "", fmt.Errorf("render html: %w", err)
	}
	if err := es.text.Execute(&tb, msg); err != nil {
		return "", "", fmt.Errorf("render text: %w", err)
	}
	return hb.String(), tb.String(), nil
}

// Send implements Sender.
func (es *EmailSender) Send(ctx context.Context, target string, msg Message) error {
	if es.cfg.APIKey == "" || es.cfg.From == "" {
		return fmt.Errorf("email: %w", ErrNotConfigured)
	}
	htmlBody, textBody, err := es.Render(msg)
	if err != nil {
		return err
	}
	body, err := json.Marshal(emailRequest{
		From:    es.cfg.From,
		To:      splitAddresses(target),
		Subject: msg.Subject,
		HTML:    htmlBody,
		Text:    textBody,
	})
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, es.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+es.cfg.APIKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := es.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	detail := http.StatusText(resp.StatusCode)
	var apiErr emailErrorResponse
	if b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)); json.Unmarshal(b, &apiErr) == nil && apiErr.Message != "" {
		detail = apiErr.Message
	}
	return fmt.Errorf("email api returned HTTP %d: %s", resp.StatusCode, detail)
}

// splitAddresses allows a comma separated recipient list in settings.
func splitAddresses(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
