// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/gift-engine/internal/analysis"
	"github.com/pdiddy/gift-engine/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Derive search intent from a recipient description",
	Long: `Analyze runs the configured AI provider over a recipient profile and
prints the extracted keywords, categories, and candidate search queries.
When no provider is configured, or the provider fails, the keyword
heuristic is used instead.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("description", "", "free-text description of the recipient")
	analyzeCmd.Flags().StringSlice("interest", nil, "recipient interest (repeatable)")
	analyzeCmd.Flags().StringSlice("like", nil, "something the recipient likes (repeatable)")
	analyzeCmd.Flags().StringSlice("dislike", nil, "something the recipient dislikes (repeatable)")
	analyzeCmd.Flags().String("occasion", "", "gift occasion")
	analyzeCmd.Flags().Float64("budget-min", 0, "minimum budget")
	analyzeCmd.Flags().Float64("budget-max", 0, "maximum budget")
	analyzeCmd.Flags().Bool("json", false, "output the analysis as JSON")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	var p types.RecipientProfile
	p.Description, _ = f.GetString("description")
	p.Interests, _ = f.GetStringSlice("interest")
	p.Likes, _ = f.GetStringSlice("like")
	p.Dislikes, _ = f.GetStringSlice("dislike")
	p.Occasion, _ = f.GetString("occasion")
	if f.Changed("budget-min") {
		v, _ := f.GetFloat64("budget-min")
		p.BudgetMin = &v
	}
	if f.Changed("budget-max") {
		v, _ := f.GetFloat64("budget-max")
		p.BudgetMax = &v
	}
	if strings.TrimSpace(p.Description) == "" && len(p.Interests) == 0 {
		return fmt.Errorf("--description or --interest is required")
	}

	ctx := cmd.Context()
	c, err := components(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	a := c.Analysis.Analyze(ctx, p)
	queries := analysis.CandidateQueries(a, p)

	out := cmd.OutOrStdout()
	if asJSON, _ := f.GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Analysis types.RecipientAnalysis `json:"analysis"`
			Queries  []string                `json:"queries"`
		}{a, queries})
	}
	printAnalysis(out, a, queries)
	return nil
}

func printAnalysis(w io.Writer, a types.RecipientAnalysis, queries []string) {
	fmt.Fprintf(w, "Provider:    %s (confidence %.2f)\n", a.Provider, a.ConfidenceScore)
	fmt.Fprintf(w, "Keywords:    %s\n", strings.Join(a.ExtractedKeywords, ", "))
	fmt.Fprintf(w, "Categories:  %s\n", strings.Join(a.SuggestedCategories, ", "))
	if len(a.PersonalityTraits) > 0 {
		fmt.Fprintf(w, "Traits:      %s\n", strings.Join(a.PersonalityTraits, ", "))
	}
	if len(a.GiftThemes) > 0 {
		fmt.Fprintf(w, "Themes:      %s\n", strings.Join(a.GiftThemes, ", "))
	}
	fmt.Fprintln(w, "Queries:")
	for i, q := range queries {
		fmt.Fprintf(w, "  %d. %s\n", i+1, q)
	}
}
