// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/gift-engine/internal/store"
	"github.com/pdiddy/gift-engine/pkg/types"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Inspect and export stored products",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored products, most recently updated first",
	Args:  cobra.NoArgs,
	RunE:  runProductsList,
}

var productsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored products as YAML or JSON",
	Long: `Export writes every stored product to --out, or to stdout when --out is
not given. Use --source to export a single source.`,
	Args: cobra.NoArgs,
	RunE: runProductsExport,
}

func init() {
	productsListCmd.Flags().String("source", "", "only list products from this source")
	productsListCmd.Flags().Int("limit", 20, "maximum products to list")
	productsListCmd.Flags().Int("offset", 0, "products to skip")
	productsListCmd.Flags().Bool("json", false, "output as JSON")

	productsExportCmd.Flags().String("format", store.FormatYAML, "yaml or json")
	productsExportCmd.Flags().String("out", "", "output file (default stdout)")
	productsExportCmd.Flags().String("source", "", "only export products from this source")

	productsCmd.AddCommand(productsListCmd, productsExportCmd)
	rootCmd.AddCommand(productsCmd)
}

func runProductsList(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx := cmd.Context()
	c, err := components(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	filter := store.ProductFilter{Source: source}
	records, err := c.Store.FindProducts(ctx, filter, store.Page{Limit: limit, Offset: offset})
	if err != nil {
		return err
	}
	total, err := c.Store.CountProducts(ctx, filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Products []types.ProductRecord `json:"products"`
			Total    int                   `json:"total"`
		}{records, total})
	}
	printRecords(out, records, total)
	return nil
}

func printRecords(w io.Writer, records []types.ProductRecord, total int) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No stored products.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-10s  %-48s  %s\n", "ID", "Source", "Title", "Updated")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, r := range records {
		title := []rune(r.Title)
		if len(title) > 48 {
			title = append(title[:45], []rune("...")...)
		}
		fmt.Fprintf(w, "%-36s  %-10s  %-48s  %s\n",
			r.ID, r.Source, string(title), r.UpdatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(w, "\nShowing %d of %d products\n", len(records), total)
}

func runProductsExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	path, _ := cmd.Flags().GetString("out")
	source, _ := cmd.Flags().GetString("source")

	ctx := cmd.Context()
	c, err := components(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	filter := store.ProductFilter{Source: source}
	if path == "" {
		return c.Store.Export(ctx, format, filter, cmd.OutOrStdout())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if err := c.Store.Export(ctx, format, filter, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported products to %s\n", path)
	return nil
}
