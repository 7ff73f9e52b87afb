// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// RecipientProfile describes the person a gift is for. Every field is
// optional; analyzers work with whatever is present.
type RecipientProfile struct {
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Relationship string   `json:"relationship,omitempty" yaml:"relationship,omitempty"`
	AgeRange     string   `json:"ageRange,omitempty" yaml:"age_range,omitempty"`
	Gender       string   `json:"gender,omitempty" yaml:"gender,omitempty"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Interests    []string `json:"interests,omitempty" yaml:"interests,omitempty"`
	Likes        []string `json:"likes,omitempty" yaml:"likes,omitempty"`
	Dislikes     []string `json:"dislikes,omitempty" yaml:"dislikes,omitempty"`
	BudgetMin    *float64 `json:"budgetMin,omitempty" yaml:"budget_min,omitempty"`
	BudgetMax    *float64 `json:"budgetMax,omitempty" yaml:"budget_max,omitempty"`
	Occasion     string   `json:"occasion,omitempty" yaml:"occasion,omitempty"`
}

// CacheParams returns the profile as a plain map for cache key generation.
func (p RecipientProfile) CacheParams() map[string]any {
	m := map[string]any{}
	put := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	puts := func(k string, v []string) {
		if len(v) > 0 {
			m[k] = v
		}
	}
	put("name", p.Name)
	put("relationship", p.Relationship)
	put("ageRange", p.AgeRange)
	put("gender", p.Gender)
	put("description", p.Description)
	put("occasion", p.Occasion)
	puts("interests", p.Interests)
	puts("likes", p.Likes)
	puts("dislikes", p.Dislikes)
	if p.BudgetMin != nil {
		m["budgetMin"] = *p.BudgetMin
	}
	if p.BudgetMax != nil {
		m["budgetMax"] = *p.BudgetMax
	}
	return m
}

// RecipientAnalysis is the search intent derived from a RecipientProfile.
type RecipientAnalysis struct {
	ExtractedKeywords   []string `json:"extractedKeywords" yaml:"extracted_keywords"`
	SuggestedCategories []string `json:"suggestedCategories" yaml:"suggested_categories"`
	SearchQueries       []string `json:"searchQueries" yaml:"search_queries"`
	PersonalityTraits   []string `json:"personalityTraits" yaml:"personality_traits"`
	GiftThemes          []string `json:"giftThemes" yaml:"gift_themes"`

	// ConfidenceScore lies in [0, 1].
	ConfidenceScore float64 `json:"confidenceScore" yaml:"confidence_score"`

	// Provider names the analyzer that produced the result.
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
}
