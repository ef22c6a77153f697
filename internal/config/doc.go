// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for kefu.
//
// TOML, JSON and YAML files are supported, with defaults, a .env file,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: main configuration structure
//   - ValidationError, ValidateErrors: collected validation failures
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (KEFU_*), including those set by .env
//   - ~/.kefu/config.toml
//   - ~/.kefu/config.json
//   - ~/.kefu/config.yaml
//   - Built-in defaults
//
// KEFU_HOME relocates ~/.kefu.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := api.NewClient(cfg.API.BaseURL).WithTimeout(cfg.API.Timeout())
package config
