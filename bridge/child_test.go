// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sophic-Technical-Solutions/kismet/ipcregistry"
)

// pathConfig is a ConfigStore stub with a fixed search-path list and a
// %B token bound to a test directory.
type pathConfig struct {
	paths  []string
	binDir string
}

func (c *pathConfig) HelperBinaryPaths() []string { return c.paths }

func (c *pathConfig) ExpandLogPath(path string) string {
	return strings.ReplaceAll(path, "%B", c.binDir)
}

func TestCheckIPCResolution(t *testing.T) {
	dir := t.TempDir()
	helper := filepath.Join(dir, "helper")
	if err := os.WriteFile(helper, []byte("#!/bin/sh\nexit 0\n"), 0o644); err != nil {
		t.Fatalf("writing helper: %v", err)
	}

	ep := NewEndpoint(nil)
	ep.Registry = ipcregistry.New()
	ep.Config = &pathConfig{paths: []string{"/nonexistent", dir}}

	if ep.CheckIPC("helper") {
		t.Fatal("CheckIPC accepted a non-executable file")
	}

	if err := os.Chmod(helper, 0o755); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	if !ep.CheckIPC("helper") {
		t.Fatal("CheckIPC rejected an executable file on the search path")
	}
}

func TestCheckIPCSkipsDirectories(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	// A directory named like the helper must be skipped, not accepted.
	if err := os.Mkdir(filepath.Join(first, "helper"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	real := filepath.Join(second, "helper")
	if err := os.WriteFile(real, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("writing helper: %v", err)
	}

	ep := NewEndpoint(nil)
	ep.Registry = ipcregistry.New()
	ep.Config = &pathConfig{paths: []string{first, second}}

	path, _, err := ep.resolveHelper("helper")
	if err != nil {
		t.Fatalf("resolveHelper: %v", err)
	}
	if path != real {
		t.Fatalf("resolved %q, want %q", path, real)
	}
}

func TestCheckIPCDefaultsToBinToken(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "helper"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("writing helper: %v", err)
	}

	ep := NewEndpoint(nil)
	ep.Registry = ipcregistry.New()
	ep.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	ep.Config = &pathConfig{binDir: dir}

	if !ep.CheckIPC("helper") {
		t.Fatal("CheckIPC did not fall back to the %B bin directory")
	}
}

func TestRunIPCUnknownBinary(t *testing.T) {
	ep := NewEndpoint(nil)
	ep.Registry = ipcregistry.New()
	ep.Config = &pathConfig{paths: []string{t.TempDir()}}

	err := ep.RunIPC(context.Background(), "no-such-helper")
	if !errors.Is(err, ErrHelperNotFound) {
		t.Fatalf("RunIPC = %v, want ErrHelperNotFound", err)
	}
}

func TestRunIPCSpawnsAndKillsChild(t *testing.T) {
	dir := t.TempDir()
	helper := filepath.Join(dir, "helper")
	// A helper that parks forever; teardown must SIGKILL it.
	if err := os.WriteFile(helper, []byte("#!/bin/sh\nsleep 30\n"), 0o755); err != nil {
		t.Fatalf("writing helper: %v", err)
	}

	registry := ipcregistry.New()
	ep := NewEndpoint(nil)
	ep.Registry = registry
	ep.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	ep.Config = &pathConfig{paths: []string{dir}}

	if err := ep.RunIPC(context.Background(), "helper"); err != nil {
		t.Fatalf("RunIPC: %v", err)
	}
	if got := registry.Len(); got != 1 {
		t.Fatalf("registry children = %d, want 1 after launch", got)
	}

	ep.Close()

	if got := registry.Len(); got != 0 {
		t.Fatalf("registry children = %d, want 0 after Close", got)
	}
	select {
	case <-ep.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("endpoint did not finish teardown")
	}
}

func TestRunIPCChildExitTearsDown(t *testing.T) {
	dir := t.TempDir()
	helper := filepath.Join(dir, "helper")
	if err := os.WriteFile(helper, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("writing helper: %v", err)
	}

	driver := &recordingDriver{}
	ep := NewEndpoint(driver)
	ep.Registry = ipcregistry.New()
	ep.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	ep.Config = &pathConfig{paths: []string{dir}}

	if err := ep.RunIPC(context.Background(), "helper"); err != nil {
		t.Fatalf("RunIPC: %v", err)
	}

	select {
	case <-ep.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("endpoint did not tear down after the child exited")
	}
	if got := ep.Registry.Len(); got != 0 {
		t.Fatalf("registry children = %d, want 0 after child exit", got)
	}
}
