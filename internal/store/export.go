// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/gift-engine/pkg/types"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

const exportLimit = 100000

// ExportYAML writes the product table to <dir>/export.yaml.
func (s *Store) ExportYAML(ctx context.Context, filter ProductFilter) (string, error) {
	return s.exportFile(ctx, FormatYAML, filter)
}

// ExportJSON writes the product table to <dir>/export.json.
func (s *Store) ExportJSON(ctx context.Context, filter ProductFilter) (string, error) {
	return s.exportFile(ctx, FormatJSON, filter)
}

func (s *Store) exportFile(ctx context.Context, format string, filter ProductFilter) (string, error) {
	path := filepath.Join(s.dir, "export."+format)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	if err := s.Export(ctx, format, filter, f); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// Export writes products matching filter to w in the given format.
func (s *Store) Export(ctx context.Context, format string, filter ProductFilter, w io.Writer) error {
	products, err := s.FindProducts(ctx, filter, Page{Limit: exportLimit})
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}
	return encode(format, products, w)
}

func encode(format string, products []types.ProductRecord, w io.Writer) error {
	switch format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(products); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(products); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}
