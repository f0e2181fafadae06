// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for this module's
// command-line tools: fatal error reporting to stderr for the window
// before the structured logger is initialized, and process exit after
// an unrecoverable error in main().
package process
