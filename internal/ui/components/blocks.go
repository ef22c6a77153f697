// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jeranaias/kefu-tui/internal/content"
	"github.com/jeranaias/kefu-tui/internal/ui/styles"
	"github.com/jeranaias/kefu-tui/internal/util"
)

// minCellWidth keeps narrow terminals from truncating every cell to "...".
const minCellWidth = 6

// BlockRenderer draws parsed reply blocks at a fixed width. It is not safe
// for concurrent use.
type BlockRenderer struct {
	theme    *styles.Theme
	width    int
	markdown bool

	glam      *glamour.TermRenderer
	glamWidth int
}

// NewBlockRenderer creates a renderer. With markdown off, text blocks are
// only word-wrapped.
func NewBlockRenderer(theme *styles.Theme, width int, markdown bool) *BlockRenderer {
	return &BlockRenderer{theme: theme, width: width, markdown: markdown}
}

// SetWidth changes the wrap width.
func (r *BlockRenderer) SetWidth(width int) {
	r.width = width
}

// Width returns the wrap width.
func (r *BlockRenderer) Width() int {
	return r.width
}

// Render draws blocks in order, separated by blank lines.
func (r *BlockRenderer) Render(blocks []content.Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, content.Match(b, r.text, r.table))
	}
	return strings.Join(parts, "\n\n")
}

func (r *BlockRenderer) text(t content.Text) string {
	if r.markdown {
		if g := r.renderer(); g != nil {
			if out, err := g.Render(t.Text); err == nil {
				return strings.Trim(out, "\n")
			}
		}
	}
	if r.width <= 0 {
		return t.Text
	}
	return lipgloss.NewStyle().Width(r.width).Render(t.Text)
}

// renderer lazily (re)builds the glamour renderer for the current width.
func (r *BlockRenderer) renderer() *glamour.TermRenderer {
	if r.glam != nil && r.glamWidth == r.width {
		return r.glam
	}
	opts := []glamour.TermRendererOption{glamour.WithStandardStyle(r.theme.GlamourStyle())}
	if r.width > 0 {
		opts = append(opts, glamour.WithWordWrap(r.width))
	}
	g, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil
	}
	r.glam, r.glamWidth = g, r.width
	return g
}

func (r *BlockRenderer) table(t content.Table) string {
	cols := t.Columns()
	cellWidth := 0
	if r.width > 0 && cols > 0 {
		// One border column per cell plus the outer edge, two padding cells each.
		cellWidth = (r.width - 1 - cols*3) / cols
		if cellWidth < minCellWidth {
			cellWidth = minCellWidth
		}
	}

	// Ragged rows are padded so every row spans the widest one.
	fit := func(row []string) []string {
		out := make([]string, cols)
		for i := range out {
			if i < len(row) {
				out[i] = row[i]
			}
			if cellWidth > 0 {
				out[i] = util.TruncateWidth(out[i], cellWidth)
			}
		}
		return out
	}

	body := t.Body()
	rows := make([][]string, 0, len(body))
	for _, row := range body {
		rows = append(rows, fit(row))
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.theme.TableBorder).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.theme.TableHeader
			}
			return r.theme.TableCell
		}).
		Headers(fit(t.Header())...).
		Rows(rows...)
	return tbl.Render()
}
