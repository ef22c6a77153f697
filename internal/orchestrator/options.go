// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	notifier     Notifier
	logger       *zap.Logger
	advisoryGate bool
	cacheTTL     time.Duration
	extensions   []string
}

func defaultOptions() options {
	return options{
		notifier:     discard{},
		logger:       zap.NewNop(),
		advisoryGate: true,
		cacheTTL:     DefaultOrderCacheTTL,
		extensions:   DefaultExtensions(),
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures a flow.
type Option func(*options)

// WithNotifier sets where notices go.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAdvisoryGate controls whether Chat.Start refuses to start while the
// conversation is pending. Disabling it lets concurrent sends race.
func WithAdvisoryGate(enabled bool) Option {
	return func(o *options) { o.advisoryGate = enabled }
}

// WithOrderCacheTTL sets how long order lookups are cached. Zero disables
// caching.
func WithOrderCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl >= 0 {
			o.cacheTTL = ttl
		}
	}
}

// WithExtensions sets the file extensions accepted for upload.
func WithExtensions(exts ...string) Option {
	return func(o *options) {
		if len(exts) > 0 {
			o.extensions = normalizeExtensions(exts)
		}
	}
}
