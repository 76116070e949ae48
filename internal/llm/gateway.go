package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nikhilbhutani/podcastai/internal/config"
)

type gateway struct {
	providers        map[string]Provider
	defaultProvider  string
	fallbackProvider string
	fallbackModel    string
}

func NewGateway(cfg config.LLMConfig) Gateway {
	g := &gateway{
		providers:        make(map[string]Provider),
		defaultProvider:  cfg.DefaultProvider,
		fallbackProvider: cfg.FallbackProvider,
		fallbackModel:    cfg.FallbackModel,
	}

	if cfg.OpenAIKey != "" {
		g.providers["openai"] = NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	}
	if cfg.AnthropicKey != "" {
		g.providers["anthropic"] = NewAnthropicProvider(cfg.AnthropicKey)
	}

	return g
}

// NewGatewayWithProviders builds a gateway over already constructed providers.
func NewGatewayWithProviders(defaultProvider, fallbackProvider, fallbackModel string, providers ...Provider) Gateway {
	g := &gateway{
		providers:        make(map[string]Provider, len(providers)),
		defaultProvider:  defaultProvider,
		fallbackProvider: fallbackProvider,
		fallbackModel:    fallbackModel,
	}
	for _, p := range providers {
		g.providers[p.Name()] = p
	}
	return g
}

func (g *gateway) provider(name string) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return p, nil
}

// Chat makes a single call on the requested (or default) provider and, if it
// fails, one call on the fallback provider. Retrying is left to callers.
func (g *gateway) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = g.defaultProvider
	}

	resp, err := g.chat(ctx, providerName, req)
	if err == nil || g.fallbackProvider == "" || g.fallbackProvider == providerName {
		return resp, err
	}

	slog.Warn("primary provider failed, trying fallback",
		"primary", providerName,
		"fallback", g.fallbackProvider,
		"error", err,
	)
	fbReq := req
	if g.fallbackModel != "" {
		fbReq.Model = g.fallbackModel
	}
	resp, fbErr := g.chat(ctx, g.fallbackProvider, fbReq)
	if fbErr != nil {
		return nil, errors.Join(err, fbErr)
	}
	return resp, nil
}

func (g *gateway) chat(ctx context.Context, providerName string, req ChatRequest) (*ChatResponse, error) {
	p, err := g.provider(providerName)
	if err != nil {
		return nil, err
	}
	return p.ChatCompletion(ctx, req)
}
