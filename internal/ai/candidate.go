package ai

import (
	"strings"

	"github.com/ykvlv/assetwatch/internal/config"
)

// Known provider ids in fallback order.
const (
	ProviderOpenAI     = "openai"
	ProviderDeepSeek   = "deepseek"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderCustom     = "custom"
)

var providerOrder = []string{ProviderOpenAI, ProviderDeepSeek, ProviderOpenRouter, ProviderGemini, ProviderCustom}

// providerFallbackModels are tried after an endpoint's configured models.
var providerFallbackModels = map[string][]string{
	ProviderOpenAI:     {"gpt-4o-mini", "gpt-4.1-mini", "gpt-3.5-turbo"},
	ProviderDeepSeek:   {"deepseek-chat", "deepseek-reasoner"},
	ProviderOpenRouter: {"openai/gpt-4o-mini", "google/gemini-2.0-flash-001", "meta-llama/llama-3.3-70b-instruct"},
	ProviderGemini:     {"gemini-2.0-flash", "gemini-1.5-flash"},
}

// Kind selects the client used for a candidate.
type Kind string

const (
	KindOpenAICompatible Kind = "openai-compatible"
	KindGemini           Kind = "gemini"
)

// RequestMode is the OpenAI-compatible request shape.
type RequestMode string

const (
	ModeChat       RequestMode = "chat"
	ModeCompletion RequestMode = "completion"
)

// Candidate is one provider endpoint to try, with its ordered models.
type Candidate struct {
	ProviderID     string
	CustomID       string
	Kind           Kind
	EndpointURL    string
	APIKey         string
	Model          string
	ModelFallbacks []string
	ExtraHeaders   map[string]string
	RequestMode    RequestMode
}

// Name identifies the candidate in logs and results.
func (c Candidate) Name() string {
	if c.CustomID != "" {
		return c.ProviderID + ":" + c.CustomID
	}
	return c.ProviderID
}

// Preference is the caller's optional provider/model choice.
type Preference struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	CustomID string `json:"customId,omitempty"`
}

// Endpoint is the configuration of one provider or custom endpoint.
type Endpoint struct {
	ID      string
	URL     string
	APIKey  string
	Models  []string
	Headers map[string]string
}

// Providers is the configured provider set. It is read-only after creation.
type Providers struct {
	OpenAI     Endpoint
	DeepSeek   Endpoint
	OpenRouter Endpoint
	Gemini     Endpoint
	Custom     []Endpoint
	Default    string
}

// ProvidersFromConfig maps process configuration to Providers.
func ProvidersFromConfig(cfg config.AI) Providers {
	p := Providers{
		OpenAI:   Endpoint{ID: ProviderOpenAI, URL: cfg.OpenAIBaseURL, APIKey: cfg.OpenAIKey, Models: nonEmpty(cfg.OpenAIModel)},
		DeepSeek: Endpoint{ID: ProviderDeepSeek, URL: cfg.DeepSeekURL, APIKey: cfg.DeepSeekKey, Models: nonEmpty(cfg.DeepSeekModel)},
		OpenRouter: Endpoint{
			ID:      ProviderOpenRouter,
			URL:     cfg.OpenRouterURL,
			APIKey:  cfg.OpenRouterKey,
			Models:  nonEmpty(cfg.OpenRouterModel),
			Headers: map[string]string{"X-Title": "assetwatch"},
		},
		Gemini:  Endpoint{ID: ProviderGemini, APIKey: cfg.GeminiKey, Models: nonEmpty(cfg.GeminiModel)},
		Default: normalize(cfg.DefaultProvider),
	}
	if cfg.AppURL != "" {
		p.OpenRouter.Headers["HTTP-Referer"] = cfg.AppURL
	}
	for _, ep := range cfg.CustomEndpoints {
		p.Custom = append(p.Custom, Endpoint{ID: ep.ID, URL: ep.URL, APIKey: ep.APIKey, Models: ep.Models})
	}
	return p
}

// Configured lists the provider ids that have credentials, in fallback order.
func (p Providers) Configured() []string {
	var out []string
	for _, id := range providerOrder {
		if len(p.candidatesFor(id, "")) > 0 {
			out = append(out, id)
		}
	}
	return out
}

func (p Providers) builtin(id string) (Endpoint, bool) {
	switch id {
	case ProviderOpenAI:
		return p.OpenAI, true
	case ProviderDeepSeek:
		return p.DeepSeek, true
	case ProviderOpenRouter:
		return p.OpenRouter, true
	case ProviderGemini:
		return p.Gemini, true
	}
	return Endpoint{}, false
}

// candidatesFor expands one provider id. Built-in providers need an API key;
// custom endpoints only need a URL since local servers often run without one.
func (p Providers) candidatesFor(id, customID string) []Candidate {
	if id == ProviderCustom {
		var out []Candidate
		for _, ep := range p.Custom {
			if customID != "" && ep.ID != customID {
				continue
			}
			if ep.URL == "" {
				continue
			}
			out = append(out, newCandidate(ProviderCustom, ep.ID, KindOpenAICompatible, ep))
		}
		return out
	}
	ep, ok := p.builtin(id)
	if !ok || ep.APIKey == "" {
		return nil
	}
	kind := KindOpenAICompatible
	if id == ProviderGemini {
		kind = KindGemini
	}
	return []Candidate{newCandidate(id, "", kind, ep)}
}

func newCandidate(providerID, customID string, kind Kind, ep Endpoint) Candidate {
	c := Candidate{
		ProviderID:   providerID,
		CustomID:     customID,
		Kind:         kind,
		EndpointURL:  ep.URL,
		APIKey:       ep.APIKey,
		ExtraHeaders: ep.Headers,
	}
	models := append(append([]string{}, ep.Models...), providerFallbackModels[providerID]...)
	models = dedupe(models)
	if len(models) > 0 {
		c.Model = models[0]
		c.ModelFallbacks = models[1:]
	}
	if kind == KindOpenAICompatible {
		_, c.RequestMode = ResolveEndpoint(ep.URL)
	}
	return c
}

// BuildCandidates orders the credentialed candidates: the preferred provider
// first, then the rest in fixed fallback order. It never touches the network.
func BuildCandidates(p Providers, pref Preference) ([]Candidate, error) {
	preferred := normalize(pref.Provider)
	if preferred == "" {
		preferred = p.Default
	}
	if preferred != "" && !known(preferred) {
		return nil, &Error{Code: CodeUnsupportedProvider, Err: errUnsupported(preferred)}
	}

	var out []Candidate
	seen := make(map[string]bool)
	add := func(cs []Candidate) {
		for _, c := range cs {
			if !seen[c.Name()] {
				seen[c.Name()] = true
				out = append(out, c)
			}
		}
	}

	if preferred == ProviderCustom && pref.CustomID != "" {
		first := p.candidatesFor(ProviderCustom, pref.CustomID)
		if len(first) == 0 && !p.hasCustom(pref.CustomID) {
			return nil, &Error{Code: CodeCustomEndpointNotFound, Err: errCustomNotFound(pref.CustomID)}
		}
		add(first)
	} else if preferred != "" {
		add(p.candidatesFor(preferred, ""))
	}
	for _, id := range providerOrder {
		add(p.candidatesFor(id, ""))
	}

	if len(out) == 0 {
		return nil, &Error{Code: MissingKeyCode(preferred), Err: ErrNoProvider}
	}
	return out, nil
}

// ModelsFor orders the models to try on c: the caller's model when the
// preference targets this provider, then the endpoint defaults, then the
// provider fallbacks. Duplicates are dropped keeping the first position.
func ModelsFor(c Candidate, pref Preference) []string {
	var models []string
	if pref.Model != "" && normalize(pref.Provider) == c.ProviderID &&
		(c.ProviderID != ProviderCustom || pref.CustomID == "" || pref.CustomID == c.CustomID) {
		models = append(models, pref.Model)
	}
	if c.Model != "" {
		models = append(models, c.Model)
	}
	models = append(models, c.ModelFallbacks...)
	return dedupe(models)
}

// ResolveEndpoint returns the request URL and shape for an OpenAI-compatible
// base URL. A URL ending in /completions outside /chat/ is completion style; a
// bare base URL gets /chat/completions appended.
func ResolveEndpoint(base string) (string, RequestMode) {
	u := strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasSuffix(u, "/completions") {
		if strings.Contains(u, "/chat/") {
			return u, ModeChat
		}
		return u, ModeCompletion
	}
	return u + "/chat/completions", ModeChat
}

func (p Providers) hasCustom(id string) bool {
	for _, ep := range p.Custom {
		if ep.ID == id {
			return true
		}
	}
	return false
}

func known(id string) bool {
	for _, k := range providerOrder {
		if k == id {
			return true
		}
	}
	return false
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func nonEmpty(s string) []string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return []string{s}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
