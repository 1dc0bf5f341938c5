package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ClientOptions are shared by the provider clients.
type ClientOptions struct {
	Timeout      time.Duration
	Retries      int
	RetryBackoff time.Duration
	HTTPClient   *http.Client
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.Timeout <= 0 {
		o.Timeout = 45 * time.Second
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	return o
}

// OpenAIClient talks to any OpenAI-compatible chat or completion endpoint.
type OpenAIClient struct {
	opts ClientOptions
}

func NewOpenAIClient(opts ClientOptions) *OpenAIClient {
	return &OpenAIClient{opts: opts.withDefaults()}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type completionRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Generate implements Client. Each try gets its own timeout; retryable
// failures are retried with a linearly growing backoff.
func (oc *OpenAIClient) Generate(ctx context.Context, c Candidate, model string, p Prompt) (string, error) {
	url, mode := ResolveEndpoint(c.EndpointURL)
	if c.RequestMode != "" {
		mode = c.RequestMode
	}
	body, err := buildBody(mode, model, p)
	if err != nil {
		return "", err
	}

	var lastErr error
	for try := 0; try <= oc.opts.Retries; try++ {
		if try > 0 {
			wait := oc.opts.RetryBackoff * time.Duration(try)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}
		text, err := oc.do(ctx, url, mode, c, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return "", lastErr
}

func (oc *OpenAIClient) do(ctx context.Context, url string, mode RequestMode, c Candidate, body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, oc.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	for k, v := range c.ExtraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := oc.opts.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("request: %w", context.DeadlineExceeded)
		}
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		he := &HTTPError{StatusCode: resp.StatusCode}
		var er openAIErrorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error.Message != "" {
			he.Message = er.Error.Message
		} else {
			he.Message = strings.TrimSpace(string(raw))
			if len(he.Message) > 300 {
				he.Message = he.Message[:300]
			}
		}
		return "", he
	}

	var out openAIResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("response has no choices")
	}
	text := out.Choices[0].Message.Content
	if mode == ModeCompletion || text == "" {
		if t := out.Choices[0].Text; t != "" {
			text = t
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response")
	}
	return text, nil
}

func buildBody(mode RequestMode, model string, p Prompt) ([]byte, error) {
	if mode == ModeCompletion {
		return json.Marshal(completionRequest{Model: model, Prompt: p.Flatten(), MaxTokens: 2048})
	}
	msgs := make([]chatMessage, 0, len(p.Messages)+1)
	if p.System != "" {
		msgs = append(msgs, chatMessage{Role: RoleSystem, Content: p.System})
	}
	for _, m := range p.Messages {
		msgs = append(msgs, chatMessage{Role: m.Role, Content: m.Content})
	}
	return json.Marshal(chatRequest{Model: model, Messages: msgs})
}

// retryable limits in-call retries to transient transport and capacity
// failures. A missing model will not appear on the next try.
func retryable(err error) bool {
	code, failover := Classify(err)
	if !failover {
		return false
	}
	return code != CodeModelNotFound && code != CodeModelUnavailable
}
