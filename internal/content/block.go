// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package content

import "fmt"

// =============================================================================
// BLOCK KINDS
// =============================================================================

// Kind discriminates the block variants.
type Kind string

const (
	KindText  Kind = "text"
	KindTable Kind = "table"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// Block is one renderable unit of an assistant message.
// The set of implementations is closed: Text and Table.
type Block interface {
	Kind() Kind
	isBlock()
}

// =============================================================================
// TEXT BLOCK
// =============================================================================

// Text is a prose segment. Text is never empty after trimming.
type Text struct {
	Text string
}

// Kind implements Block.
func (Text) Kind() Kind { return KindText }

func (Text) isBlock() {}

// =============================================================================
// TABLE BLOCK
// =============================================================================

// Table is a grid of cells. Rows[0] is the header row and at least one data
// row follows it. Data rows may have a different cell count than the header;
// renderers must tolerate ragged rows.
type Table struct {
	Rows [][]string
}

// Kind implements Block.
func (Table) Kind() Kind { return KindTable }

func (Table) isBlock() {}

// Header returns the header row.
func (t Table) Header() []string {
	if len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[0]
}

// Body returns the data rows.
func (t Table) Body() [][]string {
	if len(t.Rows) < 2 {
		return nil
	}
	return t.Rows[1:]
}

// Columns returns the widest row's cell count.
func (t Table) Columns() int {
	n := 0
	for _, row := range t.Rows {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

// Clone returns a deep copy so callers cannot alias a stored transcript.
func (t Table) Clone() Table {
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = append([]string(nil), row...)
	}
	return Table{Rows: rows}
}

// =============================================================================
// EXHAUSTIVE DISPATCH
// =============================================================================

// Match dispatches on the block kind. Every consumer supplies a handler for
// every kind, so adding a kind breaks the build instead of silently dropping
// content at render time.
func Match[R any](b Block, onText func(Text) R, onTable func(Table) R) R {
	switch v := b.(type) {
	case Text:
		return onText(v)
	case Table:
		return onTable(v)
	default:
		panic(fmt.Sprintf("content: unhandled block kind %T", b))
	}
}

// CloneBlocks deep-copies a block slice.
func CloneBlocks(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = Match(b,
			func(t Text) Block { return t },
			func(t Table) Block { return t.Clone() },
		)
	}
	return out
}

// PlainText flattens blocks back into text, joining table cells with " | ".
// Used for previews and clipboard-style exports.
func PlainText(blocks []Block) string {
	var out []byte
	for i, b := range blocks {
		if i > 0 {
			out = append(out, '\n', '\n')
		}
		out = append(out, Match(b,
			func(t Text) string { return t.Text },
			func(t Table) string {
				var s []byte
				for r, row := range t.Rows {
					if r > 0 {
						s = append(s, '\n')
					}
					for c, cell := range row {
						if c > 0 {
							s = append(s, " | "...)
						}
						s = append(s, cell...)
					}
				}
				return string(s)
			},
		)...)
	}
	return string(out)
}
