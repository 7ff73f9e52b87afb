// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/gift-engine/pkg/types"
)

// ResultFile is the on-disk form of a search and its results, so a search
// can be saved and re-rendered later without contacting any source.
type ResultFile struct {
	Queries []string            `yaml:"queries"`
	Sources []string            `yaml:"sources,omitempty"`
	Options types.SearchOptions `yaml:"options"`
	Result  Result              `yaml:"result"`
	Summary ResultSummary       `yaml:"summary"`
}

// ResultSummary stores result statistics and a timestamp.
type ResultSummary struct {
	Total     int       `yaml:"total"`
	Sources   []string  `yaml:"sources_with_results"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteResultFile saves a search and its result to a YAML file.
func WriteResultFile(path string, queries, sources []string, opts types.SearchOptions, res Result) error {
	rf := ResultFile{
		Queries: queries,
		Sources: sources,
		Options: opts,
		Result:  res,
		Summary: ResultSummary{
			Total:     res.TotalProducts,
			Sources:   res.Sources,
			Timestamp: time.Now().UTC(),
		},
	}

	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling result file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadResultFile loads a previously saved result file.
func ReadResultFile(path string) (*ResultFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result file: %w", err)
	}
	var rf ResultFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing result file: %w", err)
	}
	if rf.Result.Results == nil {
		rf.Result.Results = map[string][]types.StandardizedProduct{}
	}
	return &rf, nil
}
