// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the gift-engine CLI.
// Subcommands: serve, search, analyze, products, version.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/gift-engine/internal/app"
	"github.com/pdiddy/gift-engine/internal/logger"
	"github.com/pdiddy/gift-engine/internal/secrets"
	"github.com/pdiddy/gift-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the loaded configuration, set before any subcommand runs.
	cfg *types.Config

	// zl is the process logger.
	zl *zap.Logger
)

// rootCmd is the base command for the gift-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "gift-engine",
	Short: "Multi-source product aggregation for gift finding",
	Long: `gift-engine searches several product sources concurrently for a list of
candidate queries, normalizes what they return into one product shape, and
persists the results.

Sources are rate limited and cached independently; a failing source yields
an empty list and never affects the others. A recipient profile can be
analyzed into search queries first, by a generative provider when one is
configured or by a keyword heuristic otherwise.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		cfgFile, _ := cmd.Flags().GetString("config")
		loaded, used, err := loadConfig(cfgFile)
		if err != nil {
			return err
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			loaded.Log.Level = lvl
		}

		l, err := logger.New(loaded.Log)
		if err != nil {
			return err
		}
		zl = l
		if used != "" {
			zl.Sugar().Debugw("using config file", "path", used)
		}

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, zl.Sugar())
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			zl.Sugar().Infow("loaded secrets", "keys", keys)
		}
		secrets.Apply(loaded, s)

		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zl != nil {
			_ = zl.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./gift-engine.yaml or ~/.config/gift-engine/config.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of secret files, one per key")
	rootCmd.PersistentFlags().String("log-level", "", "override log.level (debug, info, warn, error)")
}

// components builds the engine for a one-shot command. The caller closes
// the result.
func components(ctx context.Context) (*app.Components, error) {
	return app.Build(ctx, cfg, zl.Sugar())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
