// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"strconv"
	"strings"
)

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - KEFU_API_URL: overrides api.base_url
//   - KEFU_TIMEOUT: overrides api.timeout_secs
//   - KEFU_LOG_LEVEL: overrides log.level
//   - KEFU_LOG_FILE: overrides log.file
//   - KEFU_HISTORY: "0"/"false" disables the transcript archive
//   - KEFU_HISTORY_PATH: overrides history.path
//   - KEFU_THEME: overrides ui.theme
//
// Malformed numbers are ignored.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("KEFU_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("KEFU_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.API.TimeoutSecs = n
		}
	}
	if v := os.Getenv("KEFU_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("KEFU_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("KEFU_HISTORY"); v != "" {
		c.History.Enabled = parseBool(v)
	}
	if v := os.Getenv("KEFU_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("KEFU_THEME"); v != "" {
		c.UI.Theme = v
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
