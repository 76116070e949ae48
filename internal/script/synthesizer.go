// Package script asks the generation service for a two-host dialogue and
// parses it into ordered segments.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nikhilbhutani/podcastai/internal/llm"
	"github.com/nikhilbhutani/podcastai/internal/metrics"
	"github.com/nikhilbhutani/podcastai/internal/models"
	"github.com/nikhilbhutani/podcastai/internal/retry"
)

var (
	ErrEmptyScript = errors.New("no script content generated")
	ErrNoSegments  = errors.New("failed to parse script: no valid dialogue segments found")
)

type Message = llm.Message

// Request describes the script to write. URLs are handed to the model as
// references; Context carries text already extracted from them.
type Request struct {
	Topic    string
	URLs     []string
	Context  string
	Duration string
	Tone     string
	Audience string
}

type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Retry       retry.Policy
}

type Synthesizer struct {
	gateway llm.Gateway
	opts    Options
	metrics *metrics.Metrics
}

func NewSynthesizer(gw llm.Gateway, opts Options, m *metrics.Metrics) *Synthesizer {
	if opts.Retry.Attempts == 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	return &Synthesizer{gateway: gw, opts: opts, metrics: m}
}

// Generate returns the dialogue for req. Each attempt is a full generation
// plus parse, so an empty or unparseable reply is retried like a transport
// error. The last attempt's error is returned.
func (s *Synthesizer) Generate(ctx context.Context, req Request) ([]models.DialogueSegment, error) {
	messages, err := buildMessages(req)
	if err != nil {
		return nil, err
	}

	policy := s.opts.Retry
	policy.OnAttempt = func(_ int, err error) { s.metrics.CallAttempt(metrics.ServiceScript, err) }

	segments, err := retry.Do(ctx, policy, "script.generate", func(ctx context.Context) ([]models.DialogueSegment, error) {
		resp, err := s.gateway.Chat(ctx, llm.ChatRequest{
			Model:       s.opts.Model,
			Messages:    messages,
			Temperature: s.opts.Temperature,
			MaxTokens:   s.opts.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("generate script: %w", err)
		}
		if strings.TrimSpace(resp.Content) == "" {
			return nil, ErrEmptyScript
		}

		segments := Parse(resp.Content)
		if len(segments) == 0 {
			return nil, ErrNoSegments
		}

		slog.Info("script generated",
			"provider", resp.Provider,
			"model", resp.Model,
			"response_id", resp.ID,
			"latency_ms", resp.LatencyMs,
			"segments", len(segments),
			"input_tokens", resp.InputTokens,
			"output_tokens", resp.OutputTokens,
			"cost_usd", resp.CostUSD,
		)
		return segments, nil
	})
	if err != nil {
		return nil, err
	}
	return segments, nil
}
