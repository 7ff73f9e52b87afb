// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search aggregates products from heterogeneous ecommerce sources.
// Each source is an Adapter registered by name; the Coordinator fans
// candidate queries out to sources concurrently under a shared rate
// limiter and result cache, and persists what it finds.
package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// FormatTable writes a result as a human-readable table, one block per
// source in name order.
func FormatTable(res Result, w io.Writer) {
	if res.TotalProducts == 0 {
		fmt.Fprintln(w, "No products found.")
		return
	}

	fmt.Fprintf(w, "%-10s  %-56s  %-10s  %-6s  %s\n", "Source", "Title", "Price", "Rating", "ID")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, name := range res.Sources {
		for _, p := range res.Results[name] {
			price := ""
			if p.Price != nil {
				price = fmt.Sprintf("%.2f %s", *p.Price, p.Currency)
			}
			rating := ""
			if p.Rating != nil {
				rating = fmt.Sprintf("%.1f", *p.Rating)
			}
			fmt.Fprintf(w, "%-10s  %-56s  %-10s  %-6s  %s\n",
				name, truncate(p.Title, 56), price, rating, p.ExternalID)
		}
	}

	fmt.Fprintf(w, "\n%d products from %d sources (%s)\n",
		res.TotalProducts, len(res.Sources), strings.Join(res.Sources, ", "))
}

// FormatJSON writes a result as indented JSON.
func FormatJSON(res Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
