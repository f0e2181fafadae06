// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostkit

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration consumed by the bridge binaries.
type Config struct {
	// BinDir is the directory the %B path token expands to: where the
	// host's helper binaries are installed.
	BinDir string `yaml:"bin_dir"`

	// HelperBinaryPath lists the directories searched for helper
	// binaries, in order. Entries may use the %B token and ${VAR}
	// environment expansion. Empty means the bridge falls back to %B
	// alone.
	HelperBinaryPath []string `yaml:"helper_binary_path"`

	// Listen is the TCP address the attach server binds when a bridge
	// binary runs in attach mode instead of spawning a child.
	Listen string `yaml:"listen"`

	// HTTPListen is the address of the reference web server that
	// exposes helper-registered proxy routes. Empty disables it.
	HTTPListen string `yaml:"http_listen"`
}

// LoadConfig reads and parses the YAML config at path, applying
// ${VAR} and ${VAR:-default} expansion to every path-valued entry.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.BinDir = expandVars(cfg.BinDir)
	for i, entry := range cfg.HelperBinaryPath {
		cfg.HelperBinaryPath[i] = expandVars(entry)
	}
	return &cfg, nil
}

// expandVars expands ${VAR} and ${VAR:-default} patterns against the
// process environment.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// YAMLConfigStore adapts Config to the bridge's ConfigStore interface.
type YAMLConfigStore struct {
	Config *Config
}

// HelperBinaryPaths returns the configured helper_binary_path entries.
func (s *YAMLConfigStore) HelperBinaryPaths() []string {
	return s.Config.HelperBinaryPath
}

// ExpandLogPath substitutes the %B token with the configured bin
// directory and applies environment expansion. Paths with no tokens
// pass through unchanged.
func (s *YAMLConfigStore) ExpandLogPath(path string) string {
	return expandVars(strings.ReplaceAll(path, "%B", s.Config.BinDir))
}
