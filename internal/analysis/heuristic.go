// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"context"
	"strings"
	"unicode"

	"github.com/pdiddy/gift-engine/internal/normalize"
	"github.com/pdiddy/gift-engine/pkg/types"
)

const (
	maxKeywords = 15
	maxQueries  = 5

	heuristicConfidence = 0.3
)

var stopWords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`the a an and or but in on at to for of with by from as is was are
		were been be have has had do does did will would could should may might must can this that
		these those they them their there what which who when where why how about into through during
		before after above below up down out off over under again further then once here all each few
		more most other some such no nor not only own same so than too very just don now`) {
		stopWords[w] = true
	}
}

// ExtractKeywords returns up to 15 distinct lowercase words from text, in
// order of first appearance. Words of two letters or fewer and stop words
// are skipped.
func ExtractKeywords(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	seen := map[string]bool{}
	out := []string{}
	for _, w := range words {
		if len([]rune(w)) <= 2 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// QueryContext adds optional refinements to generated queries.
type QueryContext struct {
	Occasion string
	Budget   string
	Category string
}

// GenerateQueries builds up to five distinct search queries from keywords:
// the top three, the top five, then occasion, category and budget variants.
func GenerateQueries(keywords []string, qc QueryContext) []string {
	var queries []string
	seen := map[string]bool{}
	add := func(q string) {
		if q = strings.TrimSpace(q); q != "" && !seen[q] {
			seen[q] = true
			queries = append(queries, q)
		}
	}
	first := ""
	if len(keywords) > 0 {
		first = keywords[0]
		add(strings.Join(head(keywords, 3), " "))
		add(strings.Join(head(keywords, 5), " "))
	}
	if qc.Occasion != "" {
		add(qc.Occasion + " gift " + first)
	}
	if qc.Category != "" {
		add(qc.Category + " " + first)
	}
	if qc.Budget != "" {
		g := first
		if g == "" {
			g = "gift"
		}
		add(g + " " + qc.Budget)
	}

	for i := len(queries); len(queries) < 3 && i < len(keywords); i++ {
		add(strings.Join(head(keywords[i:], 3), " "))
	}
	return head(queries, maxQueries)
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// HeuristicAnalyzer derives an analysis from the profile text alone.
type HeuristicAnalyzer struct{}

// Analyze never fails.
func (HeuristicAnalyzer) Analyze(_ context.Context, p types.RecipientProfile) (types.RecipientAnalysis, error) {
	text := strings.Join(append(append([]string{p.Description}, p.Interests...), p.Likes...), " ")

	disliked := map[string]bool{}
	for _, w := range ExtractKeywords(strings.Join(p.Dislikes, " ")) {
		disliked[w] = true
	}
	keywords := []string{}
	for _, w := range ExtractKeywords(text) {
		if !disliked[w] {
			keywords = append(keywords, w)
		}
	}

	categories := normalize.ExtractCategories(types.StandardizedProduct{Title: text}, nil)
	category := ""
	if len(categories) > 0 {
		category = categories[0]
	}

	return types.RecipientAnalysis{
		ExtractedKeywords:   keywords,
		SuggestedCategories: categories,
		SearchQueries: nonNilList(GenerateQueries(keywords, QueryContext{
			Occasion: p.Occasion,
			Category: category,
			Budget:   formatBudget(p.BudgetMin, p.BudgetMax),
		})),
		PersonalityTraits: []string{},
		GiftThemes:        []string{},
		ConfidenceScore:   heuristicConfidence,
		Provider:          types.ProviderHeuristic,
	}, nil
}

func nonNilList(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
