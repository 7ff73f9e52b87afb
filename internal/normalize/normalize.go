// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize maps adapter output onto the canonical product schema
// and rejects malformed entries.
package normalize

import (
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/gift-engine/pkg/types"
)

// MaxTitleLength bounds stored titles, counted in runes.
const MaxTitleLength = 500

// Validate reports whether p may reach the cache or the store: it needs a
// title and a product link, a non-negative price when present, and a
// rating within [0, 5] when present.
func Validate(p types.StandardizedProduct) bool {
	if strings.TrimSpace(p.Title) == "" {
		return false
	}
	if strings.TrimSpace(p.ProductURL) == "" {
		return false
	}
	if p.Price != nil && *p.Price < 0 {
		return false
	}
	if p.Rating != nil && (*p.Rating < 0 || *p.Rating > 5) {
		return false
	}
	return true
}

// NormalizeTitle trims title, collapses whitespace runs to one space and
// truncates to MaxTitleLength runes.
func NormalizeTitle(title string) string {
	t := strings.Join(strings.Fields(title), " ")
	if utf8.RuneCountInString(t) <= MaxTitleLength {
		return t
	}
	r := []rune(t)
	return string(r[:MaxTitleLength])
}

// categoryRule maps a category to the tokens that imply it.
type categoryRule struct {
	category string
	keywords []string
}

// categoryTable is consulted in order; the order fixes output order.
var categoryTable = []categoryRule{
	{"Electronics", []string{"electronic", "tech", "device", "gadget", "smartphone", "tablet", "laptop"}},
	{"Fashion", []string{"clothing", "apparel", "fashion", "wear", "outfit", "dress", "shirt"}},
	{"Books", []string{"book", "novel", "reading", "author", "publisher"}},
	{"Sports", []string{"sport", "fitness", "exercise", "athletic", "outdoor"}},
	{"Gaming", []string{"game", "gaming", "console", "controller", "gamer"}},
	{"Home", []string{"home", "kitchen", "furniture", "decor", "appliance"}},
	{"Beauty", []string{"beauty", "cosmetic", "makeup", "skincare", "perfume"}},
}

// Categories returns the names of the inferred categories in table order.
func Categories() []string {
	out := make([]string, len(categoryTable))
	for i, rule := range categoryTable {
		out[i] = rule.category
	}
	return out
}

// ExtractCategories returns the source-supplied categories followed by the
// categories inferred from the product text, deduplicated. keywords are
// extra text matched alongside title and description. The result is
// heuristic and never decides validity.
func ExtractCategories(p types.StandardizedProduct, keywords []string) []string {
	seen := make(map[string]bool)
	out := []string{}
	add := func(c string) {
		c = strings.TrimSpace(c)
		if c == "" || seen[strings.ToLower(c)] {
			return
		}
		seen[strings.ToLower(c)] = true
		out = append(out, c)
	}

	for _, c := range p.Categories {
		add(c)
	}

	text := strings.ToLower(p.Title + " " + p.Description + " " + strings.Join(keywords, " "))
	for _, rule := range categoryTable {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				add(rule.category)
				break
			}
		}
	}
	return out
}

// Normalize returns the canonical form of p for source: title normalized,
// currency and source defaulted, tags non-nil, categories extracted, and a
// negative review count dropped. ok is false when the result fails
// Validate.
func Normalize(p types.StandardizedProduct, source string) (types.StandardizedProduct, bool) {
	p.Title = NormalizeTitle(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.ProductURL = strings.TrimSpace(p.ProductURL)
	if p.Source == "" {
		p.Source = source
	}
	if p.Currency == "" {
		p.Currency = types.DefaultCurrency
	}
	if p.ReviewCount != nil && *p.ReviewCount < 0 {
		p.ReviewCount = nil
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if !Validate(p) {
		return p, false
	}
	p.Categories = ExtractCategories(p, nil)
	return p, true
}

// NormalizeAll normalizes products in order, dropping invalid ones, and
// stops once limit valid products are collected. The second result counts
// the products dropped.
func NormalizeAll(products []types.StandardizedProduct, source string, limit int) ([]types.StandardizedProduct, int) {
	out := make([]types.StandardizedProduct, 0, min(len(products), max(limit, 0)))
	dropped := 0
	for _, p := range products {
		if len(out) >= limit {
			break
		}
		n, ok := Normalize(p, source)
		if !ok {
			dropped++
			continue
		}
		out = append(out, n)
	}
	return out, dropped
}
