// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/gift-engine/internal/search"
	"github.com/pdiddy/gift-engine/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search every product source for candidate queries",
	Long: `Search runs the candidate queries against each source concurrently. Each
source tries the queries in order and stops at the first that yields
products. Results are normalized, cached, and stored.

With --load, a result file written by --save is re-rendered without
contacting any source.`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringArray("query", nil, "candidate query, in priority order (repeatable)")
	searchCmd.Flags().StringSlice("source", nil, "source to search (repeatable; default all)")
	searchCmd.Flags().Int("limit", types.DefaultLimit, "maximum products per source")
	searchCmd.Flags().Float64("min-price", 0, "minimum price")
	searchCmd.Flags().Float64("max-price", 0, "maximum price")
	searchCmd.Flags().String("category", "", "category filter")
	searchCmd.Flags().String("sort-by", "", "relevance, price or rating")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("save", "", "write the search and its results to a YAML file")
	searchCmd.Flags().String("load", "", "render a saved result file instead of searching")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	if path, _ := cmd.Flags().GetString("load"); path != "" {
		rf, err := search.ReadResultFile(path)
		if err != nil {
			return err
		}
		return render(rf.Result, asJSON, cmd)
	}

	queries, _ := cmd.Flags().GetStringArray("query")
	if len(queries) == 0 {
		return fmt.Errorf("at least one --query is required")
	}
	sources, _ := cmd.Flags().GetStringSlice("source")
	opts, err := searchOptions(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := components(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.Coordinator.SearchAll(ctx, queries, opts, sources)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := search.WriteResultFile(path, queries, sources, opts, res); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved %d products to %s\n", res.TotalProducts, path)
	}
	return render(res, asJSON, cmd)
}

func render(res search.Result, asJSON bool, cmd *cobra.Command) error {
	if asJSON {
		return search.FormatJSON(res, cmd.OutOrStdout())
	}
	search.FormatTable(res, cmd.OutOrStdout())
	return nil
}

// searchOptions reads the option flags. Unset flags stay unset.
func searchOptions(cmd *cobra.Command) (types.SearchOptions, error) {
	f := cmd.Flags()
	var opts types.SearchOptions
	if f.Changed("limit") {
		n, _ := f.GetInt("limit")
		opts.Limit = &n
	}
	if f.Changed("min-price") {
		v, _ := f.GetFloat64("min-price")
		opts.MinPrice = &v
	}
	if f.Changed("max-price") {
		v, _ := f.GetFloat64("max-price")
		opts.MaxPrice = &v
	}
	opts.Category, _ = f.GetString("category")
	sortBy, _ := f.GetString("sort-by")
	opts.SortBy = types.SortBy(sortBy)
	return opts, opts.Validate()
}
