package ai

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Client performs one generation request against one candidate and model.
type Client interface {
	Generate(ctx context.Context, c Candidate, model string, p Prompt) (string, error)
}

// Result is a successful generation with its provenance.
type Result struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Attempts int    `json:"attempts"`
}

// Chain walks candidates and their models until one answers.
type Chain struct {
	clients map[Kind]Client
	log     *zap.Logger
}

// NewChain registers the client for each candidate kind.
func NewChain(log *zap.Logger, openai, gemini Client) *Chain {
	return &Chain{
		clients: map[Kind]Client{KindOpenAICompatible: openai, KindGemini: gemini},
		log:     log.Named("ai"),
	}
}

// Run tries candidates outer and models inner, one attempt at a time. Every
// failure moves on to the next pair; the classification only decides how
// loudly it is logged. When everything fails the last error is returned as an
// *Error.
func (ch *Chain) Run(ctx context.Context, candidates []Candidate, pref Preference, p Prompt) (Result, error) {
	if len(candidates) == 0 {
		return Result{}, &Error{Code: MissingKeyCode(normalize(pref.Provider)), Err: ErrNoProvider}
	}

	var (
		lastErr  error
		attempts int
	)
	for _, c := range candidates {
		client := ch.clients[c.Kind]
		for _, model := range ModelsFor(c, pref) {
			if err := ctx.Err(); err != nil {
				return Result{Attempts: attempts}, &Error{Code: CodeTimeout, Provider: c.Name(), Model: model, Err: err}
			}
			attempts++

			text, err := ch.attempt(ctx, client, c, model, p)
			if err == nil {
				attemptsTotal.WithLabelValues(c.ProviderID, "success").Inc()
				ch.log.Info("AI request answered",
					zap.String("provider", c.Name()),
					zap.String("model", model),
					zap.Int("attempts", attempts),
				)
				return Result{Text: text, Provider: c.Name(), Model: model, Attempts: attempts}, nil
			}

			code, failover := Classify(err)
			attemptsTotal.WithLabelValues(c.ProviderID, code).Inc()
			fields := []zap.Field{
				zap.String("provider", c.Name()),
				zap.String("model", model),
				zap.String("code", code),
				zap.Error(err),
			}
			if failover {
				ch.log.Warn("AI attempt failed, trying next candidate", fields...)
			} else {
				ch.log.Error("AI attempt failed", fields...)
			}
			lastErr = &Error{Code: code, Provider: c.Name(), Model: model, Err: err}
		}
	}
	if lastErr == nil {
		lastErr = &Error{Code: CodeBackendError, Err: errors.New("no models to try")}
	}
	return Result{Attempts: attempts}, lastErr
}

// attempt isolates one call so a panicking client becomes an error.
func (ch *Chain) attempt(ctx context.Context, client Client, c Candidate, model string, p Prompt) (text string, err error) {
	if client == nil {
		return "", fmt.Errorf("no client for kind %q", c.Kind)
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("client panic: %v", rec)
		}
	}()
	return client.Generate(ctx, c, model, p)
}
