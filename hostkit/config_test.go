// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostkit

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	content := `
bin_dir: /opt/kismet/bin
helper_binary_path:
  - /usr/local/libexec
  - "%B"
listen: 127.0.0.1:2501
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BinDir != "/opt/kismet/bin" {
		t.Fatalf("BinDir = %q", cfg.BinDir)
	}
	if len(cfg.HelperBinaryPath) != 2 || cfg.HelperBinaryPath[0] != "/usr/local/libexec" {
		t.Fatalf("HelperBinaryPath = %v", cfg.HelperBinaryPath)
	}
	if cfg.Listen != "127.0.0.1:2501" {
		t.Fatalf("Listen = %q", cfg.Listen)
	}
}

func TestLoadConfigExpandsEnvironment(t *testing.T) {
	t.Setenv("KISMET_TEST_ROOT", "/srv/kismet")

	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	content := `
bin_dir: ${KISMET_TEST_ROOT}/bin
helper_binary_path:
  - ${KISMET_TEST_UNSET:-/fallback}/helpers
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BinDir != "/srv/kismet/bin" {
		t.Fatalf("BinDir = %q, want expanded env value", cfg.BinDir)
	}
	if cfg.HelperBinaryPath[0] != "/fallback/helpers" {
		t.Fatalf("HelperBinaryPath[0] = %q, want default expansion", cfg.HelperBinaryPath[0])
	}
}

func TestExpandLogPathBinToken(t *testing.T) {
	store := &YAMLConfigStore{Config: &Config{BinDir: "/opt/kismet/bin"}}

	if got := store.ExpandLogPath("%B"); got != "/opt/kismet/bin" {
		t.Fatalf("ExpandLogPath(%%B) = %q", got)
	}
	if got := store.ExpandLogPath("/plain/path"); got != "/plain/path" {
		t.Fatalf("ExpandLogPath passthrough = %q", got)
	}
}
