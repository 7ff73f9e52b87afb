// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"go.uber.org/zap"

	"github.com/pdiddy/gift-engine/pkg/types"
)

// generateFunc performs one Genkit generation and returns the reply text
// and total tokens. Replaced in tests.
type generateFunc func(ctx context.Context, system, prompt string) (string, int, error)

// GenkitAnalyzer sends the analysis prompt through Genkit's Google AI
// plugin.
type GenkitAnalyzer struct {
	// Usage receives token counts after each successful call. Optional.
	Usage UsageRecorder

	model    string
	generate generateFunc
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewGenkitAnalyzer initializes Genkit with the Google AI plugin. Without
// an API key the analyzer is returned unconfigured and Genkit is not
// started.
func NewGenkitAnalyzer(ctx context.Context, cfg types.AIConfig, usage UsageRecorder, log *zap.SugaredLogger) *GenkitAnalyzer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	a := &GenkitAnalyzer{Usage: usage, model: cfg.Model, log: log, now: time.Now}
	if cfg.APIKey == "" {
		return a
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: cfg.APIKey}))
	a.generate = func(ctx context.Context, system, prompt string) (string, int, error) {
		resp, err := genkit.Generate(ctx, g,
			ai.WithMessages(ai.NewSystemTextMessage(system), ai.NewUserTextMessage(prompt)),
			ai.WithModelName(cfg.Model),
		)
		if err != nil {
			return "", 0, err
		}
		tokens := 0
		if resp.Usage != nil {
			tokens = resp.Usage.TotalTokens
		}
		return resp.Text(), tokens, nil
	}
	return a
}

// Configured reports whether Genkit was initialized.
func (a *GenkitAnalyzer) Configured() bool { return a.generate != nil }

// Analyze renders the prompt, generates, and parses the JSON reply.
func (a *GenkitAnalyzer) Analyze(ctx context.Context, profile types.RecipientProfile) (types.RecipientAnalysis, error) {
	if !a.Configured() {
		return types.RecipientAnalysis{}, fmt.Errorf("googleai: API key not configured")
	}
	prompt, err := renderPrompt(profile)
	if err != nil {
		return types.RecipientAnalysis{}, fmt.Errorf("rendering prompt: %w", err)
	}

	start := a.now()
	text, tokens, err := a.generate(ctx, systemPrompt, prompt)
	if err != nil {
		return types.RecipientAnalysis{}, fmt.Errorf("generating with %s: %w", a.model, err)
	}
	if text == "" {
		return types.RecipientAnalysis{}, fmt.Errorf("%s returned empty content", a.model)
	}

	analysis, err := parseAnalysis(text, types.ProviderGoogleAI)
	if err != nil {
		return types.RecipientAnalysis{}, err
	}

	elapsed := a.now().Sub(start)
	a.log.Infow("analysis completed", "provider", types.ProviderGoogleAI, "model", a.model, "tokens", tokens, "elapsed", elapsed)
	recordUsage(ctx, a.Usage, a.log, types.APIUsage{
		Service:      types.ProviderGoogleAI,
		Endpoint:     "generate",
		TokensUsed:   tokens,
		ResponseTime: elapsed,
	})
	return analysis, nil
}
