// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jeranaias/kefu-tui/internal/content"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validThemes = map[string]bool{"dark": true, "light": true, "auto": true}
)

// Validate checks every section and returns all problems at once as
// ValidateErrors, or nil.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// API
	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("api.base_url", "invalid URL %q, must be http(s)://host[:port]", c.API.BaseURL)
	}
	if c.API.TimeoutSecs <= 0 || c.API.TimeoutSecs > 600 {
		add("api.timeout_secs", "must be between 1 and 600, got %d", c.API.TimeoutSecs)
	}
	if c.API.RateLimit < 0 {
		add("api.rate_limit", "must not be negative")
	}
	if c.API.RateLimit > 0 && c.API.Burst < 1 {
		add("api.burst", "must be at least 1 when rate_limit is set")
	}
	if c.API.MaxRetries < 0 || c.API.MaxRetries > 10 {
		add("api.max_retries", "must be between 0 and 10, got %d", c.API.MaxRetries)
	}

	// Parser
	if strings.TrimSpace(c.Parser.Delimiters) == "" {
		add("parser.delimiters", "must name at least one delimiter")
	}
	if c.Parser.MinTableRows < content.DefaultMinTableRows {
		add("parser.min_table_rows", "must be at least %d", content.DefaultMinTableRows)
	}

	// Auth
	for role, tags := range c.Auth.Roles {
		if strings.TrimSpace(role) == "" {
			add("auth.roles", "empty role name")
		}
		for _, t := range tags {
			if strings.TrimSpace(t) == "" {
				add("auth.roles."+role, "empty capability tag")
			}
		}
	}

	if c.Orders.CacheTTLSecs < 0 {
		add("orders.cache_ttl_secs", "must not be negative")
	}
	if c.History.RetentionDays < 0 {
		add("history.retention_days", "must not be negative")
	}

	// Docs
	if len(c.Docs.Extensions) == 0 {
		add("docs.extensions", "must list at least one extension")
	}
	for _, e := range c.Docs.Extensions {
		if !strings.HasPrefix(e, ".") || len(e) < 2 {
			add("docs.extensions", "invalid extension %q, expected e.g. \".md\"", e)
		}
	}
	if c.Docs.WatchDebounceMs < 0 {
		add("docs.watch_debounce_ms", "must not be negative")
	}

	// Log
	if !validLevels[strings.ToLower(c.Log.Level)] {
		add("log.level", "invalid level %q, must be one of: debug, info, warn, error", c.Log.Level)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		add("log", "rotation limits must not be negative")
	}

	if !validThemes[strings.ToLower(c.UI.Theme)] {
		add("ui.theme", "invalid theme %q, must be one of: dark, light, auto", c.UI.Theme)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
