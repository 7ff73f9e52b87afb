// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"

	"github.com/pdiddy/gift-engine/pkg/types"
)

// RecordUsage appends one metered API call to the usage log.
func (s *Store) RecordUsage(ctx context.Context, u types.APIUsage) error {
	created := s.timestamp()
	if !u.CreatedAt.IsZero() {
		created = u.CreatedAt.UTC().Format(timeFmt)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_usage (id, service, endpoint, tokens_used, cost, response_time_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.id(), u.Service, u.Endpoint, u.TokensUsed, u.Cost, u.ResponseTime.Milliseconds(), created,
	)
	if err != nil {
		return fmt.Errorf("recording usage: %w", err)
	}
	return nil
}

// UsageSummary aggregates the usage log for one service.
type UsageSummary struct {
	Service    string  `json:"service" yaml:"service"`
	Calls      int     `json:"calls" yaml:"calls"`
	TokensUsed int     `json:"tokensUsed" yaml:"tokens_used"`
	Cost       float64 `json:"cost" yaml:"cost"`
}

// SummarizeUsage returns per-service totals ordered by service name.
func (s *Store) SummarizeUsage(ctx context.Context) ([]UsageSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT service, count(*), coalesce(sum(tokens_used), 0), coalesce(sum(cost), 0)
		 FROM api_usage GROUP BY service ORDER BY service`)
	if err != nil {
		return nil, fmt.Errorf("summarizing usage: %w", err)
	}
	defer rows.Close()

	out := []UsageSummary{}
	for rows.Next() {
		var u UsageSummary
		if err := rows.Scan(&u.Service, &u.Calls, &u.TokensUsed, &u.Cost); err != nil {
			return nil, fmt.Errorf("scanning usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
