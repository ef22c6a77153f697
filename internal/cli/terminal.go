// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

const (
	// DefaultTerminalWidth is the fallback width when detection fails
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the minimum width we'll use for wrapping
	MinTerminalWidth = 40
)

// isTerminal reports whether r or w is an interactive terminal. Readers and
// writers that are not files (test buffers) count as interactive.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return true
	}
	return term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of w, or DefaultTerminalWidth.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return DefaultTerminalWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// ErrNoCredentials is returned when no login can be resolved without a
// terminal to prompt on.
var ErrNoCredentials = errors.New("credentials required: use --email/--password or KEFU_EMAIL/KEFU_PASSWORD")

type credentials struct {
	email    string
	password string
}

// presetCredentials resolves credentials from flags and environment only.
func presetCredentials(g *globalFlags) (credentials, bool) {
	c := credentials{email: g.email, password: g.password}
	if c.email == "" {
		c.email = os.Getenv("KEFU_EMAIL")
	}
	if c.password == "" {
		c.password = os.Getenv("KEFU_PASSWORD")
	}
	return c, c.email != "" && c.password != ""
}

// resolveCredentials falls back to prompting for whatever is missing.
func resolveCredentials(g *globalFlags, cmd *cobra.Command) (credentials, error) {
	c, ok := presetCredentials(g)
	if ok {
		return c, nil
	}
	in := cmd.InOrStdin()
	if !isTerminal(in) {
		return credentials{}, ErrNoCredentials
	}
	out := cmd.ErrOrStderr()
	reader := bufio.NewReader(in)

	if c.email == "" {
		fmt.Fprint(out, "邮箱: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return credentials{}, ErrNoCredentials
		}
		c.email = strings.TrimSpace(line)
	}
	if c.password == "" {
		fmt.Fprint(out, "密码: ")
		pw, err := readPassword(in, reader)
		fmt.Fprintln(out)
		if err != nil {
			return credentials{}, fmt.Errorf("failed to read password: %w", err)
		}
		c.password = pw
	}
	return c, nil
}

// readPassword reads without echo from a terminal, or a plain line from
// anything else.
func readPassword(in io.Reader, reader *bufio.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		return string(b), err
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// =============================================================================
// CONFIRMATION
// =============================================================================

// ErrNotConfirmed is returned when the user declines a destructive action.
var ErrNotConfirmed = errors.New("cancelled")

// confirm asks a yes/no question unless yes is already set. Without a
// terminal the action is refused rather than assumed.
func confirm(cmd *cobra.Command, question string, yes bool) error {
	if yes {
		return nil
	}
	in := cmd.InOrStdin()
	if !isTerminal(in) {
		return fmt.Errorf("%w: pass --yes to confirm non-interactively", ErrNotConfirmed)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N]: ", question)
	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && input == "" {
		return ErrNotConfirmed
	}
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes", "是":
		return nil
	default:
		return ErrNotConfirmed
	}
}
