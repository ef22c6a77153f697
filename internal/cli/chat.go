// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/kefu-tui/internal/auth"
	"github.com/jeranaias/kefu-tui/internal/config"
	"github.com/jeranaias/kefu-tui/internal/orchestrator"
	"github.com/jeranaias/kefu-tui/internal/ui/components"
	"github.com/jeranaias/kefu-tui/internal/util"
)

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader reads one line of user input. *liner.State satisfies it.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// lineEditor wraps liner with a persistent input history.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

func newLineEditor() *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	e := &lineEditor{line: line, historyFile: filepath.Join(configDir, "chat_history")}
	if f, err := os.Open(e.historyFile); err == nil {
		e.line.ReadHistory(f)
		f.Close()
	}
	return e
}

// Prompt reads a line and remembers it when non-blank.
func (e *lineEditor) Prompt(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the input history (0600) and restores the terminal.
func (e *lineEditor) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			e.line.WriteHistory(f)
			f.Close()
		}
	}
	e.line.Close()
}

// plainReader reads lines from a non-terminal source such as a pipe.
type plainReader struct {
	r *bufio.Reader
	w io.Writer
}

func (p *plainReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(p.w, prompt)
	line, err := p.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// =============================================================================
// COMMAND
// =============================================================================

func newChatCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive line-mode conversation",
		Long: `Chat opens a conversation in the terminal without the full-screen
interface. Arrow keys recall earlier input.

Commands inside the chat:
  /new       start a new conversation
  /history   list archived conversations
  /help      show this help
  /exit      leave`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd, g, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := rt.login(cmd.Context(), g, cmd)
			if err != nil {
				return err
			}

			var in lineReader
			if f, ok := cmd.InOrStdin().(*os.File); ok && f == os.Stdin && isTerminal(f) {
				editor := newLineEditor()
				defer editor.Close()
				in = editor
			} else {
				in = &plainReader{r: bufio.NewReader(cmd.InOrStdin()), w: cmd.OutOrStdout()}
			}
			return newChatREPL(rt, id, cmd.OutOrStdout()).run(cmd, in)
		},
	}
}

// =============================================================================
// REPL
// =============================================================================

type chatREPL struct {
	rt       *runtime
	identity auth.Identity
	out      io.Writer
	renderer *components.BlockRenderer

	chat    *orchestrator.Chat
	release func()
}

func newChatREPL(rt *runtime, id auth.Identity, out io.Writer) *chatREPL {
	return &chatREPL{
		rt:       rt,
		identity: id,
		out:      out,
		renderer: newReplyRenderer(rt.cfg, out),
	}
}

func (r *chatREPL) open() {
	if r.release != nil {
		r.release()
	}
	r.chat, r.release = r.rt.newChat(r.identity.Email)
}

func (r *chatREPL) run(cmd *cobra.Command, in lineReader) error {
	r.open()
	defer func() { r.release() }()

	okColor.Fprintf(r.out, "%s，您好！", r.identity.Name())
	mutedColor.Fprintln(r.out, " 输入问题开始对话，/help 查看命令。")

	ctx := cmd.Context()
	for {
		input, err := in.Prompt("你> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(input)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := r.command(cmd, line)
			if err != nil {
				errColor.Fprintf(r.out, "%v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		reply, err := r.chat.Send(ctx, line)
		if err != nil {
			errColor.Fprintf(r.out, "%v\n", err)
			continue
		}
		printReply(r.out, r.renderer, reply)
		fmt.Fprintln(r.out)
	}
}

// command handles a slash command and reports whether to leave.
func (r *chatREPL) command(cmd *cobra.Command, line string) (bool, error) {
	name := strings.Fields(line)[0]
	switch name {
	case "/exit", "/quit", "/q":
		return true, nil
	case "/new":
		r.open()
		infoColor.Fprintln(r.out, "已开始新对话")
	case "/history":
		if r.rt.history == nil {
			return false, errors.New("history is disabled")
		}
		list, err := r.rt.history.List(cmd.Context(), r.identity.Email, 10)
		if err != nil {
			return false, err
		}
		if len(list) == 0 {
			mutedColor.Fprintln(r.out, "暂无历史对话")
		}
		for _, s := range list {
			fmt.Fprintf(r.out, "  %s  %s  %d 条  %s\n",
				shortID(s.ID), util.PadWidth(util.Preview(s.Title, 30), 30), s.MessageCount, humanize.Time(s.UpdatedAt))
		}
	case "/help":
		fmt.Fprintln(r.out, cmd.Long)
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}
