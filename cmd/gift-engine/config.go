// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/gift-engine/pkg/types"
)

const envPrefix = "GIFT_ENGINE"

// credentialKeys are config keys absent from the defaults that must still
// be readable from the environment.
var credentialKeys = []string{
	"sources.amazon.access_key",
	"sources.amazon.secret_key",
	"sources.amazon.partner_tag",
	"sources.rapidapi.key",
	"sources.catalog.path",
	"analysis.openai.api_key",
	"analysis.googleai.api_key",
}

// loadConfig layers defaults, the config file and GIFT_ENGINE_* variables.
// It returns the file used, if any.
func loadConfig(cfgFile string) (*types.Config, string, error) {
	v := viper.New()
	if err := setDefaults(v, types.DefaultConfig()); err != nil {
		return nil, "", err
	}

	path := cfgFile
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range credentialKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, "", err
		}
	}

	var c types.Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, "", fmt.Errorf("decoding config: %w", err)
	}
	return &c, path, nil
}

// findConfigFile returns ./gift-engine.yaml or
// ~/.config/gift-engine/config.yaml, whichever exists first.
func findConfigFile() string {
	candidates := []string{"gift-engine.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "gift-engine", "config.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// setDefaults registers every leaf of def as a viper default so that
// environment variables can override it.
func setDefaults(v *viper.Viper, def types.Config) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("decoding defaults: %w", err)
	}
	flatten("", tree, func(k string, val any) { v.SetDefault(k, val) })
	return nil
}

func flatten(prefix string, m map[string]any, set func(string, any)) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			flatten(key, sub, set)
			continue
		}
		set(key, val)
	}
}
