// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/kefu-tui/internal/content"
	"github.com/jeranaias/kefu-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown format.
type MarkdownExporter struct {
	options *Options
	now     func() time.Time
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts, now: time.Now}
}

// Export converts a transcript to Markdown.
func (e *MarkdownExporter) Export(t Transcript) ([]byte, error) {
	if len(t.Messages) == 0 {
		return nil, ErrEmpty
	}

	var sb strings.Builder
	title := t.Title
	if title == "" {
		title = "对话 " + t.ID
	}

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(title))
		fmt.Fprintf(&sb, "id: %s\n", t.ID)
		if t.Owner != "" {
			fmt.Fprintf(&sb, "owner: %s\n", escapeYAML(t.Owner))
		}
		fmt.Fprintf(&sb, "created: %s\n", t.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(&sb, "updated: %s\n", t.UpdatedAt.Format(time.RFC3339))
		fmt.Fprintf(&sb, "messages: %d\n", len(t.Messages))
		fmt.Fprintf(&sb, "exported: %s\n", e.now().Format(time.RFC3339))
		sb.WriteString("generator: kefu\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title))

	for i, msg := range t.Messages {
		label := roleLabel(msg.Role)
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Timestamp))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		sb.WriteString(messageBody(msg))
		sb.WriteString("\n\n")

		if msg.Role == model.RoleAssistant && e.options.IncludeMetadata && msg.Intent != "" {
			fmt.Fprintf(&sb, "*意图: %s*\n\n", escapeMarkdown(msg.Intent))
		}

		if i < len(t.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(strings.TrimRight(sb.String(), "\n") + "\n"), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func roleLabel(r model.Role) string {
	switch r {
	case model.RoleUser:
		return "用户"
	case model.RoleAssistant:
		return "客服"
	case "":
		return "未知"
	default:
		return string(r)
	}
}

// messageBody renders parsed blocks when present; user messages and failed
// replies carry only raw content.
func messageBody(msg model.Message) string {
	if msg.Failed {
		return "> " + strings.TrimSpace(msg.Content)
	}
	if len(msg.Blocks) == 0 {
		return strings.TrimSpace(msg.Content)
	}
	parts := make([]string, 0, len(msg.Blocks))
	for _, b := range msg.Blocks {
		parts = append(parts, content.Match(b,
			func(t content.Text) string { return strings.TrimSpace(t.Text) },
			markdownTable,
		))
	}
	return strings.Join(parts, "\n\n")
}

// markdownTable writes a pipe table. Ragged rows are padded or cut to the
// header width.
func markdownTable(t content.Table) string {
	cols := len(t.Header())
	if cols == 0 {
		return ""
	}
	var sb strings.Builder
	writeRow := func(cells []string) {
		sb.WriteString("|")
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(cells) {
				cell = escapeCell(cells[i])
			}
			sb.WriteString(" " + cell + " |")
		}
		sb.WriteString("\n")
	}

	writeRow(t.Header())
	sb.WriteString("|" + strings.Repeat(" --- |", cols) + "\n")
	for _, row := range t.Body() {
		writeRow(row)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// escapeMarkdown escapes special Markdown characters in headings.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
		"#", "\\#",
		"[", "\\[",
		"]", "\\]",
	)
	return replacer.Replace(s)
}

// escapeYAML quotes a value when it contains YAML syntax.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#{}[]|>&*!%@`\"'\n") || strings.TrimSpace(s) != s {
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, `"`, `\"`)
		s = strings.ReplaceAll(s, "\n", `\n`)
		return `"` + s + `"`
	}
	return s
}
