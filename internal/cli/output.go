// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/jeranaias/kefu-tui/internal/auth"
	"github.com/jeranaias/kefu-tui/internal/config"
	"github.com/jeranaias/kefu-tui/internal/model"
	"github.com/jeranaias/kefu-tui/internal/orchestrator"
	"github.com/jeranaias/kefu-tui/internal/ui/components"
	"github.com/jeranaias/kefu-tui/internal/ui/styles"
)

// =============================================================================
// NOTICE PRINTER
// =============================================================================

var (
	okColor    = color.New(color.FgGreen, color.Bold)
	errColor   = color.New(color.FgRed, color.Bold)
	infoColor  = color.New(color.FgCyan)
	mutedColor = color.New(color.FgHiBlack)

	// labelStyle pads field names in key/value listings.
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
)

// printer writes orchestrator notices as one colored status line each.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

// Notify implements orchestrator.Notifier.
func (p *printer) Notify(n orchestrator.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mark, c := "•", infoColor
	switch n.Level {
	case orchestrator.LevelSuccess:
		mark, c = "✓", okColor
	case orchestrator.LevelError:
		mark, c = "✗", errColor
	}
	c.Fprintf(p.w, "%s %s", mark, n.Title)
	if n.Message != "" && n.Message != n.Title {
		fmt.Fprintf(p.w, ": %s", n.Message)
	}
	fmt.Fprintln(p.w)
}

// =============================================================================
// JSON OUTPUT
// =============================================================================

// JSONResponse is the envelope printed by --json.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
	Command   string  `json:"command,omitempty"`
}

func writeJSON(w io.Writer, command string, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	})
}

// =============================================================================
// ERRORS
// =============================================================================

// DisplayError prints err with a hint for the failures a user can fix.
func DisplayError(w io.Writer, err error) {
	errColor.Fprint(w, "Error: ")
	fmt.Fprintln(w, err)

	var verrs config.ValidateErrors
	var lerr *orchestrator.LoginError
	switch {
	case errors.As(err, &verrs):
		mutedColor.Fprintln(w, "  run `kefu config path` to find the file to fix")
	case errors.As(err, &lerr), errors.Is(err, ErrNoCredentials):
		mutedColor.Fprintln(w, "  set --email/--password or KEFU_EMAIL/KEFU_PASSWORD")
	case errors.Is(err, auth.ErrForbidden):
		mutedColor.Fprintln(w, "  this account has no knowledge-base access")
	}
}

// =============================================================================
// REPLY RENDERING
// =============================================================================

// isColorTerminal reports whether w is a real terminal. Buffers are not.
func isColorTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}

// newReplyRenderer renders replies for w: markdown only on a terminal.
func newReplyRenderer(cfg *config.Config, w io.Writer) *components.BlockRenderer {
	theme := styles.NewTheme(cfg.UI.Theme)
	return components.NewBlockRenderer(theme, terminalWidth(w), cfg.UI.Markdown && isColorTerminal(w))
}

// printReply writes an assistant message: rendered blocks plus the
// annotation line.
func printReply(w io.Writer, r *components.BlockRenderer, msg model.Message) {
	if msg.Failed {
		errColor.Fprintln(w, msg.Content)
		return
	}
	fmt.Fprintln(w, r.Render(msg.Blocks))
	if note := components.AnnotationLine(msg.Annotations()); note != "" {
		mutedColor.Fprintln(w, note)
	}
}

// replyJSON is the --json form of an assistant message.
type replyJSON struct {
	ConversationID string          `json:"conversation_id"`
	Message        model.Message   `json:"message"`
	Blocks         json.RawMessage `json:"blocks"`
}
