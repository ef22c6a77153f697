// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/kefu-tui/internal/content"
	"github.com/jeranaias/kefu-tui/internal/orchestrator"
)

func newAskCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the assistant a single question",
		Long: `Ask sends one question in a new conversation and prints the answer.
Tables in the answer are drawn as tables. With no argument the question
is read from stdin.`,
		Example: `  kefu ask "订单 ORD-1001 发货了吗？"
  echo "退货政策是什么？" | kefu ask
  kefu ask --json "库存情况"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if strings.TrimSpace(question) == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read question: %w", err)
				}
				question = string(data)
			}
			return runAsk(cmd, g, question)
		},
	}
}

func runAsk(cmd *cobra.Command, g *globalFlags, question string) error {
	rt, err := newRuntime(cmd, g, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	id, err := rt.login(ctx, g, cmd)
	if err != nil {
		return err
	}

	chat, release := rt.newChat(id.Email)
	defer release()

	reply, err := chat.Send(ctx, question)
	if errors.Is(err, orchestrator.ErrEmptyInput) {
		return errors.New("question is empty")
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if g.jsonOut {
		blocks, err := content.MarshalBlocks(reply.Blocks)
		if err != nil {
			return err
		}
		return writeJSON(out, "ask", replyJSON{
			ConversationID: chat.Conversation().ID(),
			Message:        reply,
			Blocks:         blocks,
		})
	}

	printReply(out, newReplyRenderer(rt.cfg, out), reply)
	if reply.Failed {
		return errors.New("query failed")
	}
	return nil
}
