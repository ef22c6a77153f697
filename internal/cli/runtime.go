// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/kefu-tui/internal/api"
	"github.com/jeranaias/kefu-tui/internal/auth"
	"github.com/jeranaias/kefu-tui/internal/config"
	"github.com/jeranaias/kefu-tui/internal/content"
	"github.com/jeranaias/kefu-tui/internal/history"
	"github.com/jeranaias/kefu-tui/internal/logging"
	"github.com/jeranaias/kefu-tui/internal/model"
	"github.com/jeranaias/kefu-tui/internal/orchestrator"
)

// runtime is the wired application behind one command invocation.
type runtime struct {
	cfg     *config.Config
	cfgPath string
	log     *zap.Logger

	session *auth.Session
	client  *api.Client
	parser  *content.Parser

	auth    *orchestrator.Authenticator
	orders  *orchestrator.Orders
	docs    *orchestrator.Documents
	history *history.Store // nil when the archive is disabled

	chatOpts []orchestrator.Option
	closers  []func()
}

type runtimeOptions struct {
	// tui keeps the console log core off so it cannot corrupt the screen.
	tui bool

	// notifier receives orchestrator notices; nil prints them to stderr.
	notifier orchestrator.Notifier

	// noHistory skips opening the archive for commands that never record.
	noHistory bool
}

// loadConfig honors --config before the default search.
func loadConfig(g *globalFlags) (*config.Config, string, error) {
	if g.configPath != "" {
		cfg, err := config.LoadFromPath(g.configPath)
		return cfg, g.configPath, err
	}
	return config.Load()
}

func newRuntime(cmd *cobra.Command, g *globalFlags, opts runtimeOptions) (*runtime, error) {
	cfg, cfgPath, err := loadConfig(g)
	if err != nil {
		return nil, err
	}

	logPath, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if g.verbose {
		level = "debug"
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:      level,
		File:       logPath,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
		Console:    !opts.tui && (cfg.Log.Console || g.verbose),
		Stderr:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:     cfg,
		cfgPath: cfgPath,
		log:     logger,
		session: auth.NewSession(cfg.Auth.RoleMap()),
		parser:  content.NewParser(cfg.Parser.Options()),
		closers: []func(){closeLog},
	}
	logger.Debug("runtime starting",
		zap.String("command", cmd.CommandPath()),
		zap.String("config", cfgPath),
		zap.String("api", cfg.API.BaseURL))

	rt.client = api.NewClient(cfg.API.BaseURL).
		WithTimeout(cfg.API.Timeout()).
		WithRateLimit(cfg.API.RateLimit, cfg.API.Burst).
		WithMaxRetries(cfg.API.MaxRetries).
		WithLogger(logger).
		WithTokenSource(rt.session)

	notifier := opts.notifier
	if notifier == nil {
		notifier = newPrinter(cmd.ErrOrStderr())
	}
	flowOpts := []orchestrator.Option{
		orchestrator.WithNotifier(notifier),
		orchestrator.WithLogger(logger),
		orchestrator.WithOrderCacheTTL(cfg.Orders.CacheTTL()),
		orchestrator.WithExtensions(cfg.Docs.Extensions...),
	}
	rt.chatOpts = flowOpts
	rt.auth = orchestrator.NewAuthenticator(rt.session, rt.client, flowOpts...)
	rt.orders = orchestrator.NewOrders(rt.client, flowOpts...)
	rt.docs = orchestrator.NewDocuments(rt.client, rt.session, flowOpts...)

	if cfg.History.Enabled && !opts.noHistory {
		if err := rt.openHistory(cmd.Context()); err != nil {
			rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

func (rt *runtime) openHistory(ctx context.Context) error {
	path, err := rt.cfg.HistoryPath()
	if err != nil {
		return err
	}
	store, err := history.Open(path, rt.log)
	if err != nil {
		return err
	}
	rt.history = store
	rt.closers = append(rt.closers, func() {
		if err := store.Close(); err != nil {
			rt.log.Warn("failed to close history", zap.Error(err))
		}
	})

	if keep := rt.cfg.History.Retention(); keep > 0 {
		n, err := store.Prune(ctx, time.Now().Add(-keep))
		if err != nil {
			rt.log.Warn("history prune failed", zap.Error(err))
		} else if n > 0 {
			rt.log.Info("history pruned", zap.Int64("conversations", n))
		}
	}
	return nil
}

// newChat starts a fresh conversation for owner, archived when history is
// enabled. The returned function detaches the archive.
func (rt *runtime) newChat(owner string) (*orchestrator.Chat, func()) {
	conv := model.NewConversation(model.WithParser(rt.parser))
	release := func() {}
	if rt.history != nil {
		release = rt.history.Attach(conv, owner)
	}
	return orchestrator.NewChat(conv, rt.client, rt.chatOpts...), release
}

// login authenticates with the resolved credentials.
func (rt *runtime) login(ctx context.Context, g *globalFlags, cmd *cobra.Command) (auth.Identity, error) {
	creds, err := resolveCredentials(g, cmd)
	if err != nil {
		return auth.Identity{}, err
	}
	id, err := rt.auth.Login(ctx, creds.email, creds.password)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("login failed: %w", err)
	}
	return id, nil
}

// Close releases the archive and flushes logs. Later closers run first.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
