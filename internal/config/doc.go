// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading for nexus.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.nexus/config.toml
//   - ~/.nexus/config.json
//   - Built-in defaults
//
// Environment variables with the NEXUS_ prefix override file values. The
// config file holds machine-level preferences (paths, theme, server
// settings); per-user chat settings (provider, model, temperature) live in
// the settings store instead.
package config
