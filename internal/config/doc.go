// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for inkwell.
//
// Configuration is TOML with sensible defaults and environment variable
// overrides. A file watcher supports hot reload of the config file.
//
// Resolution order (later wins):
//   - Built-in defaults
//   - ~/.inkwell/config.toml (or an explicit path)
//   - Environment variables (INKWELL_API_KEY, DEEPSEEK_API_KEY, ...)
package config
