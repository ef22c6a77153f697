// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jeranaias/kefu-tui/internal/docsync"
	"github.com/jeranaias/kefu-tui/internal/orchestrator"
	"github.com/jeranaias/kefu-tui/internal/util"
)

// withDocs logs in and hands the knowledge-base flow to fn.
func withDocs(cmd *cobra.Command, g *globalFlags, fn func(ctx context.Context, rt *runtime) error) error {
	rt, err := newRuntime(cmd, g, runtimeOptions{noHistory: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	if _, err := rt.login(cmd.Context(), g, cmd); err != nil {
		return err
	}
	return fn(cmd.Context(), rt)
}

func newDocsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "docs",
		Aliases: []string{"kb"},
		Short:   "Maintain the knowledge base",
		Long: `Docs lists, uploads, reindexes and deletes knowledge-base files.
These commands need an account with knowledge-base access.`,
	}
	cmd.AddCommand(
		newDocsListCmd(g),
		newDocsUploadCmd(g),
		newDocsReindexCmd(g),
		newDocsClearCmd(g),
		newDocsWatchCmd(g),
	)
	return cmd
}

func newDocsListCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List knowledge-base files",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDocs(cmd, g, func(ctx context.Context, rt *runtime) error {
				files, err := rt.docs.List(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if g.jsonOut {
					return writeJSON(out, "docs list", files)
				}
				if len(files) == 0 {
					mutedColor.Fprintln(out, "知识库为空")
					return nil
				}
				var total int64
				for _, f := range files {
					total += f.Size
					modified := "-"
					if !f.Modified.IsZero() {
						modified = humanize.Time(f.Modified.Time)
					}
					fmt.Fprintf(out, "%s  %10s  %s\n",
						util.PadWidth(util.TruncateWidth(f.Filename, 40), 40),
						humanize.IBytes(uint64(f.Size)),
						modified)
				}
				mutedColor.Fprintf(out, "共 %s 个文件，%s\n", humanize.Comma(int64(len(files))), humanize.IBytes(uint64(total)))
				return nil
			})
		},
	}
}

func newDocsUploadCmd(g *globalFlags) *cobra.Command {
	var noReindex bool
	cmd := &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload files and rebuild the index",
		Long: `Upload sends TXT, MD and PDF files to the knowledge base. The index is
rebuilt in the same call unless --no-reindex is given. Files with other
extensions are skipped.`,
		Example: "  kefu docs upload faq.md returns.pdf\n  kefu docs upload --no-reindex *.txt",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDocs(cmd, g, func(ctx context.Context, rt *runtime) error {
				upload := rt.docs.UploadAndReindex
				if noReindex {
					upload = rt.docs.Upload
				}
				res, err := upload(ctx, args)
				if err != nil {
					return err
				}
				if g.jsonOut {
					return writeJSON(cmd.OutOrStdout(), "docs upload", res)
				}
				for _, f := range res.Uploaded {
					fmt.Fprintf(cmd.OutOrStdout(), "  + %s (%s)\n", f.Filename, humanize.IBytes(uint64(f.Size)))
				}
				for _, f := range res.Failed {
					errColor.Fprintf(cmd.OutOrStdout(), "  ! %s: %s\n", f.Filename, f.Reason)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noReindex, "no-reindex", false, "store the files without rebuilding the index")
	return cmd
}

func newDocsReindexCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the index from the stored files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDocs(cmd, g, func(ctx context.Context, rt *runtime) error {
				if err := rt.docs.Reindex(ctx); err != nil {
					return err
				}
				if g.jsonOut {
					return writeJSON(cmd.OutOrStdout(), "docs reindex", map[string]bool{"reindexed": true})
				}
				return nil
			})
		},
	}
}

func newDocsClearCmd(g *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear [FILE]",
		Short: "Delete one file, or the whole knowledge base",
		Long: `Clear deletes FILE and its index entries. Without FILE every document
is removed. Both ask for confirmation unless --yes is given.`,
		Example: "  kefu docs clear faq.md\n  kefu docs clear --yes",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := ""
			if len(args) == 1 {
				filename = args[0]
			}
			return withDocs(cmd, g, func(ctx context.Context, rt *runtime) error {
				if err := confirm(cmd, orchestrator.ClearConfirmPrompt(filename), yes); err != nil {
					return err
				}
				deleted, err := rt.docs.Clear(ctx, filename)
				if err != nil {
					return err
				}
				if g.jsonOut {
					return writeJSON(cmd.OutOrStdout(), "docs clear", map[string]any{
						"filename":      filename,
						"deleted_count": deleted,
					})
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}

func newDocsWatchCmd(g *globalFlags) *cobra.Command {
	var (
		debounce time.Duration
		initial  bool
	)
	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Upload new and changed files from a folder",
		Long: `Watch follows DIR and uploads eligible files once they stop changing,
rebuilding the index after every batch. It runs until interrupted.`,
		Example: "  kefu docs watch ./kb\n  kefu docs watch ./kb --initial --debounce 5s",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDocs(cmd, g, func(ctx context.Context, rt *runtime) error {
				if debounce <= 0 {
					debounce = rt.cfg.Docs.WatchDebounce()
				}
				out := cmd.OutOrStdout()
				w, err := docsync.New(args[0], rt.docs, docsync.Options{
					Debounce:    debounce,
					InitialSync: initial,
					Logger:      rt.log,
					OnBatch: func(b docsync.Batch) {
						if g.jsonOut {
							writeJSON(out, "docs watch", b.Result)
							return
						}
						if b.Err != nil {
							errColor.Fprintf(out, "%s  %d 个文件上传失败: %v\n", time.Now().Format("15:04:05"), len(b.Paths), b.Err)
							return
						}
						okColor.Fprintf(out, "%s  ", time.Now().Format("15:04:05"))
						fmt.Fprintln(out, orchestrator.UploadSummary(b.Result))
					},
				})
				if err != nil {
					return err
				}
				infoColor.Fprintf(cmd.ErrOrStderr(), "正在监视 %s (Ctrl+C 退出)\n", args[0])
				if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before a changed file is uploaded (default from config)")
	cmd.Flags().BoolVar(&initial, "initial", false, "upload the eligible files already in DIR first")
	return cmd
}
