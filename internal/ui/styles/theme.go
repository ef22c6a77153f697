// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application.
type Theme struct {
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout
	Header   lipgloss.Style
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Tab      lipgloss.Style
	TabOn    lipgloss.Style

	// Messages
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	FailedBubble    lipgloss.Style
	Speaker         lipgloss.Style
	Timestamp       lipgloss.Style
	Annotation      lipgloss.Style

	// Tables inside replies
	TableHeader lipgloss.Style
	TableCell   lipgloss.Style
	TableBorder lipgloss.Style

	// Forms
	Label   lipgloss.Style
	Focused lipgloss.Style
	Input   lipgloss.Style
	Confirm lipgloss.Style

	// Footer
	StatusBar lipgloss.Style
	Help      lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	Ok        lipgloss.Style
}

// NewTheme builds the theme. mode is "dark", "light" or "auto"; auto asks
// termenv about the terminal background.
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()
	dark := true
	switch strings.ToLower(mode) {
	case "light":
		dark = false
	case "dark":
	default:
		dark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(dark)

	t := &Theme{
		IsDark:       dark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.Title = lipgloss.NewStyle().
		Foreground(Brand).
		Bold(true)
	t.Subtitle = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.Tab = lipgloss.NewStyle().
		Foreground(TextMuted).
		Padding(0, 1)
	t.TabOn = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Brand).
		Bold(true).
		Padding(0, 1)

	bubble := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)
	t.UserBubble = bubble.
		BorderForeground(UserBubbleBorder).
		Foreground(UserBubbleFg)
	t.AssistantBubble = bubble.
		BorderForeground(AssistantBubbleBorder).
		Foreground(AssistantBubbleFg)
	t.FailedBubble = bubble.
		BorderForeground(Danger).
		Foreground(Danger)
	t.Speaker = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Annotation = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.TableHeader = lipgloss.NewStyle().
		Foreground(TableHeaderFg).
		Bold(true).
		Padding(0, 1)
	t.TableCell = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Padding(0, 1)
	t.TableBorder = lipgloss.NewStyle().
		Foreground(TableBorder)

	t.Label = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Width(8)
	t.Focused = lipgloss.NewStyle().
		Foreground(Brand).
		Bold(true)
	t.Input = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(Overlay)
	t.Confirm = lipgloss.NewStyle().
		Foreground(Warning).
		Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.Help = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Muted = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Error = lipgloss.NewStyle().
		Foreground(Danger)
	t.Ok = lipgloss.NewStyle().
		Foreground(Success)
}

// GlamourStyle names the glamour standard style matching the background.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}
