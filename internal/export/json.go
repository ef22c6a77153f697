// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/kefu-tui/internal/content"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports conversations to JSON. Blocks are embedded in the
// same encoding the archive uses, so an export can be parsed back with
// content.UnmarshalBlocks.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

type jsonTranscript struct {
	ID        string        `json:"id"`
	Owner     string        `json:"owner,omitempty"`
	Title     string        `json:"title"`
	CreatedAt *time.Time    `json:"created_at,omitempty"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
	Messages  []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	ID               string          `json:"id"`
	Role             string          `json:"role"`
	Timestamp        *time.Time      `json:"timestamp,omitempty"`
	Content          string          `json:"content"`
	Blocks           json.RawMessage `json:"blocks,omitempty"`
	Intent           string          `json:"intent,omitempty"`
	RelatedOrder     json.RawMessage `json:"related_order,omitempty"`
	RelatedDocuments json.RawMessage `json:"related_documents,omitempty"`
	Failed           bool            `json:"failed,omitempty"`
}

// Export converts a transcript to indented JSON. Without IncludeMetadata the
// owner and annotations are left out; without IncludeTimestamps no times are
// written.
func (e *JSONExporter) Export(t Transcript) ([]byte, error) {
	if len(t.Messages) == 0 {
		return nil, ErrEmpty
	}

	out := jsonTranscript{
		ID:       t.ID,
		Title:    t.Title,
		Messages: make([]jsonMessage, 0, len(t.Messages)),
	}
	if e.options.IncludeMetadata {
		out.Owner = t.Owner
	}
	if e.options.IncludeTimestamps {
		out.CreatedAt = timePtr(t.CreatedAt)
		out.UpdatedAt = timePtr(t.UpdatedAt)
	}

	for _, m := range t.Messages {
		jm := jsonMessage{
			ID:      m.ID,
			Role:    m.Role.String(),
			Content: m.Content,
			Failed:  m.Failed,
		}
		if e.options.IncludeTimestamps {
			jm.Timestamp = timePtr(m.Timestamp)
		}
		if len(m.Blocks) > 0 {
			raw, err := content.MarshalBlocks(m.Blocks)
			if err != nil {
				return nil, fmt.Errorf("message %s: %w", m.ID, err)
			}
			jm.Blocks = raw
		}
		if e.options.IncludeMetadata {
			jm.Intent = m.Intent
			jm.RelatedOrder = m.RelatedOrder
			jm.RelatedDocuments = m.RelatedDocuments
		}
		out.Messages = append(out.Messages, jm)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
