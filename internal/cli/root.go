// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
	jsonOut    bool
	email      string
	password   string
}

// NewRootCmd builds the command tree. Each call returns a fresh tree so tests
// can run commands in isolation.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "kefu",
		Short: "Customer-service desk client",
		Long: `kefu talks to the customer-service backend: chat with the assistant,
look up orders and maintain the knowledge base.

Without a subcommand kefu starts the full-screen interface.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, g)
		},
	}

	// Disable completion command
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "config file path (default is ~/.kefu/config.toml)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "mirror debug logs to stderr")
	pf.BoolVar(&g.jsonOut, "json", false, "print machine-readable JSON")
	pf.StringVar(&g.email, "email", "", "login e-mail (or KEFU_EMAIL)")
	pf.StringVar(&g.password, "password", "", "login password (or KEFU_PASSWORD)")

	root.AddCommand(
		newAskCmd(g),
		newChatCmd(g),
		newOrderCmd(g),
		newDocsCmd(g),
		newHistoryCmd(g),
		newConfigCmd(g),
		newVersionCmd(g),
	)
	return root
}

// Execute runs the command tree with a context canceled on SIGINT/SIGTERM.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		DisplayError(cmd.ErrOrStderr(), err)
		stop()
		os.Exit(1)
	}
}

func newVersionCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := map[string]string{
				"version":    Version,
				"git_commit": GitCommit,
				"build_date": BuildDate,
			}
			if g.jsonOut {
				return writeJSON(cmd.OutOrStdout(), "version", info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kefu %s\n  commit: %s\n  built:  %s\n", Version, GitCommit, BuildDate)
			return nil
		},
	}
}
