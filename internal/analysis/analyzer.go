// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analysis turns a recipient profile into search intent: keywords,
// categories and candidate queries. Generative providers are tried first;
// the keyword heuristic is the fallback and always succeeds.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/pdiddy/gift-engine/pkg/types"
)

// defaultConfidence is applied when a provider omits the score.
const defaultConfidence = 0.5

// Analyzer derives a RecipientAnalysis from a profile.
type Analyzer interface {
	Analyze(ctx context.Context, profile types.RecipientProfile) (types.RecipientAnalysis, error)
}

// UsageRecorder receives one entry per metered provider call. The store
// implements it.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, u types.APIUsage) error
}

// configurable is implemented by analyzers that need credentials.
type configurable interface {
	Configured() bool
}

const systemPrompt = `You are an expert gift recommendation assistant. Analyze gift recipient descriptions and provide structured, actionable recommendations for finding the perfect gifts.`

var analysisPromptTmpl = template.Must(template.New("analysis").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`Analyze this gift recipient description and provide product recommendations in JSON format:

{{with .Description}}Description: {{.}}
{{end}}{{with .Relationship}}Relationship: {{.}}
{{end}}{{with .AgeRange}}Age Range: {{.}}
{{end}}{{with .Gender}}Gender: {{.}}
{{end}}{{with .Interests}}Interests/Hobbies: {{join . ", "}}
{{end}}{{with .Likes}}Likes: {{join . ", "}}
{{end}}{{with .Dislikes}}Dislikes: {{join . ", "}}
{{end}}{{with .Budget}}Budget: {{.}}
{{end}}{{with .Occasion}}Occasion: {{.}}
{{end}}
Provide a JSON response with the following structure:
{
  "extractedKeywords": ["keyword1", "keyword2"],
  "suggestedCategories": ["category1", "category2"],
  "searchQueries": ["query1", "query2"],
  "personalityTraits": ["trait1", "trait2"],
  "giftThemes": ["theme1", "theme2"],
  "confidenceScore": 0.85
}
extractedKeywords holds 10-15 keywords for product search, suggestedCategories 5-8 product categories, searchQueries 5 specific queries for ecommerce sites. confidenceScore is between 0 and 1. Do not include any text outside the JSON object.
`))

// renderPrompt executes the analysis prompt for profile.
func renderPrompt(profile types.RecipientProfile) (string, error) {
	data := struct {
		types.RecipientProfile
		Budget string
	}{profile, formatBudget(profile.BudgetMin, profile.BudgetMax)}

	var buf bytes.Buffer
	if err := analysisPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatBudget renders a budget range: "$20 - $50", "$20+" or "up to $50".
func formatBudget(lo, hi *float64) string {
	money := func(v float64) string { return "$" + strconv.FormatFloat(v, 'f', -1, 64) }
	switch {
	case lo != nil && *lo > 0 && hi != nil && *hi > 0:
		return money(*lo) + " - " + money(*hi)
	case lo != nil && *lo > 0:
		return money(*lo) + "+"
	case hi != nil && *hi > 0:
		return "up to " + money(*hi)
	}
	return ""
}

// wireAnalysis is the provider JSON. Confidence is a pointer so an absent
// score can be told apart from zero.
type wireAnalysis struct {
	ExtractedKeywords   []string `json:"extractedKeywords"`
	SuggestedCategories []string `json:"suggestedCategories"`
	SearchQueries       []string `json:"searchQueries"`
	PersonalityTraits   []string `json:"personalityTraits"`
	GiftThemes          []string `json:"giftThemes"`
	ConfidenceScore     *float64 `json:"confidenceScore"`
}

// parseAnalysis decodes a provider reply. Code fences around the JSON are
// tolerated. Missing lists become empty and a missing or zero score
// becomes 0.5; scores are clamped to [0, 1].
func parseAnalysis(content, provider string) (types.RecipientAnalysis, error) {
	content = stripFences(content)
	var w wireAnalysis
	if err := json.Unmarshal([]byte(content), &w); err != nil {
		return types.RecipientAnalysis{}, fmt.Errorf("parsing analysis JSON: %w", err)
	}

	score := defaultConfidence
	if w.ConfidenceScore != nil && *w.ConfidenceScore != 0 {
		score = *w.ConfidenceScore
	}
	return types.RecipientAnalysis{
		ExtractedKeywords:   cleanList(w.ExtractedKeywords),
		SuggestedCategories: cleanList(w.SuggestedCategories),
		SearchQueries:       cleanList(w.SearchQueries),
		PersonalityTraits:   cleanList(w.PersonalityTraits),
		GiftThemes:          cleanList(w.GiftThemes),
		ConfidenceScore:     clamp(score),
		Provider:            provider,
	}, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// cleanList trims entries, drops blanks and never returns nil.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// CandidateQueries picks the queries to search with: the analysis queries,
// else queries generated from its keywords, else the profile description.
func CandidateQueries(a types.RecipientAnalysis, profile types.RecipientProfile) []string {
	if q := cleanList(a.SearchQueries); len(q) > 0 {
		return q
	}
	if kw := cleanList(a.ExtractedKeywords); len(kw) > 0 {
		category := ""
		if len(a.SuggestedCategories) > 0 {
			category = a.SuggestedCategories[0]
		}
		return GenerateQueries(kw, QueryContext{
			Occasion: profile.Occasion,
			Category: category,
			Budget:   formatBudget(profile.BudgetMin, profile.BudgetMax),
		})
	}
	if d := strings.TrimSpace(profile.Description); d != "" {
		return []string{d}
	}
	return nil
}
