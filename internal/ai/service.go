package ai

import (
	"context"
	"time"

	"github.com/ykvlv/assetwatch/internal/domain"
)

// Service answers analyze and chat requests over the configured providers.
type Service struct {
	providers Providers
	chain     *Chain
	budget    time.Duration
}

// NewService creates a Service. budget bounds one whole fallback run across
// every candidate; zero means no overall limit.
func NewService(providers Providers, chain *Chain, budget time.Duration) *Service {
	return &Service{providers: providers, chain: chain, budget: budget}
}

// Providers returns the configured provider ids in fallback order.
func (s *Service) Providers() []string { return s.providers.Configured() }

// Analyze reviews the given inventory.
func (s *Service) Analyze(ctx context.Context, resources []domain.Resource, today domain.Date, pref Preference) (Result, error) {
	return s.run(ctx, pref, AnalysisPrompt(resources, today))
}

// Chat continues an assistant conversation about the inventory.
func (s *Service) Chat(ctx context.Context, resources []domain.Resource, today domain.Date, history []Message, pref Preference) (Result, error) {
	return s.run(ctx, pref, ChatPrompt(resources, today, history))
}

func (s *Service) run(ctx context.Context, pref Preference, p Prompt) (Result, error) {
	candidates, err := BuildCandidates(s.providers, pref)
	if err != nil {
		return Result{}, err
	}
	if s.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.budget)
		defer cancel()
	}
	return s.chain.Run(ctx, candidates, pref, p)
}
