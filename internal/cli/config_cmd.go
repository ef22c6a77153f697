// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jeranaias/kefu-tui/internal/config"
)

// editablePath is the file config set writes: --config, else the first
// existing candidate, else config.toml in the config directory.
func editablePath(g *globalFlags) (string, error) {
	if g.configPath != "" {
		return g.configPath, nil
	}
	paths, err := config.Candidates()
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return paths[0], nil
}

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit the configuration",
		Long: `Config manages ~/.kefu/config.toml (or config.json / config.yaml).
KEFU_HOME relocates the directory. KEFU_* environment variables and .env
files override the file at load time.`,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(g)
			if err != nil {
				return err
			}
			if g.jsonOut {
				return writeJSON(cmd.OutOrStdout(), "config show", cfg)
			}
			fmt.Fprint(cmd.OutOrStdout(), cfg.String())
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := editablePath(g)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.EnsureConfigDir(); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
				return err
			}
			if err := config.SaveTo(config.Default(), path); err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "✓ wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the config, history and log locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, loaded, err := loadConfig(g)
			if err != nil {
				// Still useful when the file is broken.
				p, perr := editablePath(g)
				if perr != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), p)
				return err
			}
			dir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			historyPath, err := cfg.HistoryPath()
			if err != nil {
				return err
			}
			logPath, err := cfg.LogPath()
			if err != nil {
				return err
			}
			info := map[string]string{
				"dir":     dir,
				"config":  loaded,
				"history": historyPath,
				"log":     logPath,
			}
			if g.jsonOut {
				return writeJSON(cmd.OutOrStdout(), "config path", info)
			}
			if loaded == "" {
				loaded = "(none, using defaults)"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s%s\n", labelStyle.Render("dir"), dir)
			fmt.Fprintf(out, "%s%s\n", labelStyle.Render("config"), loaded)
			fmt.Fprintf(out, "%s%s\n", labelStyle.Render("history"), historyPath)
			fmt.Fprintf(out, "%s%s\n", labelStyle.Render("log"), logPath)
			return nil
		},
	}

	get := &cobra.Command{
		Use:     "get KEY",
		Short:   "Print one setting",
		Example: "  kefu config get api.base_url",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(g)
			if err != nil {
				return err
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			if g.jsonOut {
				return writeJSON(cmd.OutOrStdout(), "config get", map[string]any{args[0]: v})
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one setting and save",
		Long: `Set changes one setting in the config file. Lists are comma separated.
Environment overrides are not written back.`,
		Example: "  kefu config set api.base_url http://10.0.0.5:8000\n  kefu config set docs.extensions .md,.txt",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := editablePath(g)
			if err != nil {
				return err
			}
			cfg, err := config.ReadFile(path)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
				return err
			}
			if err := config.SaveTo(cfg, path); err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "✓ %s = %s (%s)\n", args[0], args[1], path)
			return nil
		},
	}

	keys := &cobra.Command{
		Use:   "keys",
		Short: "List the settable keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if g.jsonOut {
				return writeJSON(cmd.OutOrStdout(), "config keys", config.Keys())
			}
			for _, k := range config.Keys() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}

	cmd.AddCommand(show, initCmd, path, get, set, keys)
	return cmd
}
