// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for neko.
//
// Configuration is TOML with sensible defaults, environment variable
// overrides, and validation. The file lives at ~/.neko/config.toml; an
// explicit path can be supplied instead.
//
// # Key Types
//
//   - Config: the complete neko configuration
//   - EndpointConfig / VisionConfig / RewriteConfig: per-endpoint settings
//   - ChatConfig: conversation behavior settings
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
