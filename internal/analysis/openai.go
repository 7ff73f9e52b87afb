// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/gift-engine/pkg/types"
)

// openAIURL is the chat completions endpoint. Package-level var for test
// substitution.
var openAIURL = "https://api.openai.com/v1/chat/completions"

// openAICostPer1K approximates the gpt-3.5-turbo price in USD.
const openAICostPer1K = 0.002

const openAITemperature = 0.7

// OpenAIAnalyzer calls the OpenAI chat completions API in JSON mode.
type OpenAIAnalyzer struct {
	APIKey    string
	Model     string
	MaxTokens int
	Client    *http.Client

	// Usage receives token counts after each successful call. Optional.
	Usage UsageRecorder

	log *zap.SugaredLogger
	now func() time.Time
}

// NewOpenAIAnalyzer returns an analyzer for cfg.
func NewOpenAIAnalyzer(cfg types.AIConfig, httpCfg types.HTTPConfig, usage UsageRecorder, log *zap.SugaredLogger) *OpenAIAnalyzer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &OpenAIAnalyzer{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Client:    &http.Client{Timeout: httpCfg.Timeout},
		Usage:     usage,
		log:       log,
		now:       time.Now,
	}
}

// Configured reports whether an API key is present.
func (o *OpenAIAnalyzer) Configured() bool { return o.APIKey != "" }

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat openAIFormat    `json:"response_format"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Analyze sends the rendered prompt and parses the JSON reply.
func (o *OpenAIAnalyzer) Analyze(ctx context.Context, profile types.RecipientProfile) (types.RecipientAnalysis, error) {
	if !o.Configured() {
		return types.RecipientAnalysis{}, fmt.Errorf("openai: API key not configured")
	}
	prompt, err := renderPrompt(profile)
	if err != nil {
		return types.RecipientAnalysis{}, fmt.Errorf("rendering prompt: %w", err)
	}

	body, err := json.Marshal(openAIRequest{
		Model: o.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:      o.MaxTokens,
		Temperature:    openAITemperature,
		ResponseFormat: openAIFormat{Type: "json_object"},
	})
	if err != nil {
		return types.RecipientAnalysis{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIURL, bytes.NewReader(body))
	if err != nil {
		return types.RecipientAnalysis{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := o.now()
	resp, err := client.Do(req)
	if err != nil {
		return types.RecipientAnalysis{}, fmt.Errorf("calling OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return types.RecipientAnalysis{}, fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, string(b))
	}

	var oResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return types.RecipientAnalysis{}, fmt.Errorf("decoding OpenAI response: %w", err)
	}
	if len(oResp.Choices) == 0 || oResp.Choices[0].Message.Content == "" {
		return types.RecipientAnalysis{}, fmt.Errorf("OpenAI API returned empty content")
	}

	analysis, err := parseAnalysis(oResp.Choices[0].Message.Content, types.ProviderOpenAI)
	if err != nil {
		return types.RecipientAnalysis{}, err
	}

	elapsed := o.now().Sub(start)
	tokens := oResp.Usage.TotalTokens
	o.log.Infow("analysis completed", "provider", types.ProviderOpenAI, "tokens", tokens, "elapsed", elapsed)
	recordUsage(ctx, o.Usage, o.log, types.APIUsage{
		Service:      types.ProviderOpenAI,
		Endpoint:     "chat/completions",
		TokensUsed:   tokens,
		Cost:         float64(tokens) / 1000 * openAICostPer1K,
		ResponseTime: elapsed,
	})
	return analysis, nil
}

// recordUsage forwards u to r. Failures are logged and dropped.
func recordUsage(ctx context.Context, r UsageRecorder, log *zap.SugaredLogger, u types.APIUsage) {
	if r == nil {
		return
	}
	if err := r.RecordUsage(context.WithoutCancel(ctx), u); err != nil {
		log.Warnw("recording API usage failed", "service", u.Service, "error", err)
	}
}
