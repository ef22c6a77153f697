// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jeranaias/kefu-tui/internal/export"
	"github.com/jeranaias/kefu-tui/internal/history"
	"github.com/jeranaias/kefu-tui/internal/model"
	"github.com/jeranaias/kefu-tui/internal/util"
)

// errHistoryDisabled is returned when history.enabled is false.
var errHistoryDisabled = errors.New("history is disabled (set history.enabled = true)")

// shortID is the display form of a conversation id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// historyOwner filters listings by the preset login, if any.
func historyOwner(g *globalFlags, all bool) string {
	if all {
		return ""
	}
	if g.email != "" {
		return g.email
	}
	return os.Getenv("KEFU_EMAIL")
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse archived conversations",
		Long: `History reads the local conversation archive. Listings are limited to
the account given by --email or KEFU_EMAIL unless --all is set.`,
	}

	var (
		limit int
		all   bool
	)
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd, g, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.history == nil {
				return errHistoryDisabled
			}

			list, err := rt.history.List(cmd.Context(), historyOwner(g, all), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if g.jsonOut {
				return writeJSON(out, "history list", list)
			}
			if len(list) == 0 {
				mutedColor.Fprintln(out, "暂无历史对话")
				return nil
			}
			for _, s := range list {
				fmt.Fprintf(out, "%s  %s  %4d 条  %s\n",
					shortID(s.ID),
					util.PadWidth(util.Preview(s.Title, 40), 40),
					s.MessageCount,
					humanize.Time(s.UpdatedAt))
			}
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum conversations to show (0 for all)")
	list.Flags().BoolVar(&all, "all", false, "include every account")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print one conversation",
		Long:  "Show prints a conversation transcript. ID may be any unique prefix.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, g, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.history == nil {
				return errHistoryDisabled
			}

			tr, err := loadTranscript(cmd.Context(), rt.history, args[0])
			if err != nil {
				return err
			}
			sum, msgs := tr.Summary, tr.Messages

			out := cmd.OutOrStdout()
			if g.jsonOut {
				return writeJSON(out, "history show", map[string]any{
					"conversation": sum,
					"messages":     msgs,
				})
			}

			infoColor.Fprintf(out, "%s  %s\n", sum.Title, sum.CreatedAt.Local().Format("2006-01-02 15:04"))
			r := newReplyRenderer(rt.cfg, out)
			for _, m := range msgs {
				fmt.Fprintln(out)
				mutedColor.Fprintf(out, "%s  %s\n", m.Role.DisplayName(), m.Timestamp.Local().Format("15:04:05"))
				if m.Role == model.RoleUser {
					fmt.Fprintln(out, m.Content)
					continue
				}
				printReply(out, r, m)
			}
			return nil
		},
	}

	var (
		format   string
		outDir   string
		noMeta   bool
		noStamps bool
	)
	exportCmd := &cobra.Command{
		Use:   "export ID",
		Short: "Write a conversation to a Markdown or JSON file",
		Long: `Export writes a conversation transcript into the output directory.
Tables are kept as Markdown tables. The file is created with 0600
permissions since transcripts may hold customer data.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := export.ForFormat(format, &export.Options{
				IncludeMetadata:   !noMeta,
				IncludeTimestamps: !noStamps,
			})
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd, g, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.history == nil {
				return errHistoryDisabled
			}

			tr, err := loadTranscript(cmd.Context(), rt.history, args[0])
			if err != nil {
				return err
			}
			path, err := export.ToFile(tr, exp, outDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if g.jsonOut {
				return writeJSON(out, "history export", map[string]any{
					"conversation_id": tr.ID,
					"path":            path,
					"mime_type":       exp.MimeType(),
				})
			}
			okColor.Fprint(out, "✓ ")
			fmt.Fprintf(out, "已导出 %d 条消息到 %s\n", len(tr.Messages), path)
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&format, "format", "f", "md", "output format: md or json")
	exportCmd.Flags().StringVarP(&outDir, "output", "o", ".", "output directory")
	exportCmd.Flags().BoolVar(&noMeta, "no-metadata", false, "omit owner, dates and annotations")
	exportCmd.Flags().BoolVar(&noStamps, "no-timestamps", false, "omit message times")

	cmd.AddCommand(list, show, exportCmd)
	return cmd
}

// loadTranscript resolves an id prefix and reads the whole conversation.
func loadTranscript(ctx context.Context, store *history.Store, prefix string) (export.Transcript, error) {
	id, err := store.Resolve(ctx, prefix)
	if err != nil {
		return export.Transcript{}, err
	}
	sum, err := store.Get(ctx, id)
	if err != nil {
		return export.Transcript{}, err
	}
	msgs, err := store.Messages(ctx, id)
	if err != nil {
		return export.Transcript{}, err
	}
	return export.Transcript{Summary: sum, Messages: msgs}, nil
}
