// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: amazon-access-key, amazon-secret-key, amazon-partner-tag,
// rapidapi-key, openai-api-key, googleai-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/gift-engine/pkg/types"
)

// Secret file names.
const (
	AmazonAccessKey  = "amazon-access-key"
	AmazonSecretKey  = "amazon-secret-key"
	AmazonPartnerTag = "amazon-partner-tag"
	RapidAPIKey      = "rapidapi-key"
	OpenAIAPIKey     = "openai-api-key"
	GoogleAIAPIKey   = "googleai-api-key"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, log *zap.SugaredLogger) (map[string]string, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warnw("could not read secret", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply copies secrets into cfg. Values already set in cfg, from the
// config file or environment, win.
func Apply(cfg *types.Config, secrets map[string]string) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = secrets[key]
		}
	}
	fill(&cfg.Sources.Amazon.AccessKey, AmazonAccessKey)
	fill(&cfg.Sources.Amazon.SecretKey, AmazonSecretKey)
	fill(&cfg.Sources.Amazon.PartnerTag, AmazonPartnerTag)
	fill(&cfg.Sources.RapidAPI.Key, RapidAPIKey)
	fill(&cfg.Analysis.OpenAI.APIKey, OpenAIAPIKey)
	fill(&cfg.Analysis.GoogleAI.APIKey, GoogleAIAPIKey)
}
