package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient calls the Gemini API through the genai SDK.
type GeminiClient struct {
	opts ClientOptions
}

func NewGeminiClient(opts ClientOptions) *GeminiClient {
	return &GeminiClient{opts: opts.withDefaults()}
}

// Generate implements Client. The SDK client is cheap to build, so one is
// created per call with the candidate's key.
func (gc *GeminiClient) Generate(ctx context.Context, c Candidate, model string, p Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gc.opts.Timeout)
	defer cancel()

	cfg := &genai.ClientConfig{
		APIKey:     c.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: gc.opts.HTTPClient,
	}
	if c.EndpointURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.EndpointURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}

	var genCfg *genai.GenerateContentConfig
	if p.System != "" {
		genCfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
		}
	}
	contents := make([]*genai.Content, 0, len(p.Messages))
	for _, m := range p.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, genCfg)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("gemini: %w", context.DeadlineExceeded)
		}
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}
