// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package content

import (
	"strings"

	"golang.org/x/text/width"
)

// =============================================================================
// OPTIONS
// =============================================================================

// DefaultDelimiter separates cells in a tabular line.
const DefaultDelimiter = '|'

// DefaultMinTableRows is the shortest run promoted to a table: a header row
// plus one data row.
const DefaultMinTableRows = 2

// Options tunes the table detection heuristic. Model output has no formal
// grammar, so none of these are fixed.
type Options struct {
	// Delimiters are tried in order; the first that splits a line into at
	// least two cells decides that line's delimiter.
	Delimiters []rune

	// MinTableRows is the minimum run length (header included). Values
	// below DefaultMinTableRows are raised to it.
	MinTableRows int

	// FoldWidth treats the full-width form of a delimiter (｜) as the
	// delimiter itself.
	FoldWidth bool

	// SkipRuleRows drops a markdown alignment row such as |---|:--:| that
	// sits directly after the header of a run with at least one data row.
	// Dash-only rows anywhere else are data.
	SkipRuleRows bool
}

// DefaultOptions returns the options used by Parse.
func DefaultOptions() Options {
	return Options{
		Delimiters:   []rune{DefaultDelimiter},
		MinTableRows: DefaultMinTableRows,
		FoldWidth:    true,
		SkipRuleRows: true,
	}
}

// =============================================================================
// PARSER
// =============================================================================

// Parser segments raw text into blocks. A Parser is immutable and safe for
// concurrent use.
type Parser struct {
	opts Options
}

// NewParser creates a parser, normalizing out-of-range options.
func NewParser(opts Options) *Parser {
	if len(opts.Delimiters) == 0 {
		opts.Delimiters = []rune{DefaultDelimiter}
	} else {
		opts.Delimiters = append([]rune(nil), opts.Delimiters...)
	}
	if opts.MinTableRows < DefaultMinTableRows {
		opts.MinTableRows = DefaultMinTableRows
	}
	return &Parser{opts: opts}
}

// Options returns a copy of the parser's effective options.
func (p *Parser) Options() Options {
	o := p.opts
	o.Delimiters = append([]rune(nil), p.opts.Delimiters...)
	return o
}

var defaultParser = NewParser(DefaultOptions())

// Parse segments raw with the default options.
func Parse(raw string) []Block {
	return defaultParser.Parse(raw)
}

// Parse splits raw into an ordered block sequence. It never fails: input
// with no tabular structure yields exactly one Text block equal to the
// trimmed input, or no blocks when the trimmed input is empty.
func (p *Parser) Parse(raw string) []Block {
	lines := strings.Split(raw, "\n")
	blocks := make([]Block, 0, 2)
	var prose []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(prose, "\n"))
		prose = prose[:0]
		if text != "" {
			blocks = append(blocks, Text{Text: text})
		}
	}

	for i := 0; i < len(lines); {
		_, delim, ok := p.row(lines[i])
		if !ok {
			prose = append(prose, lines[i])
			i++
			continue
		}

		// Maximal run of rows sharing one delimiter.
		j := i
		var rows [][]string
		for j < len(lines) {
			cells, d, ok := p.row(lines[j])
			if !ok || d != delim {
				break
			}
			rows = append(rows, cells)
			j++
		}
		if p.opts.SkipRuleRows && len(rows) > 2 && isRuleRow(rows[1]) {
			rows = append(rows[:1], rows[2:]...)
		}

		if len(rows) >= p.opts.MinTableRows {
			flush()
			blocks = append(blocks, Table{Rows: rows})
		} else {
			prose = append(prose, lines[i:j]...)
		}
		i = j
	}
	flush()

	return blocks
}

// row reports whether line has tabular shape and returns its trimmed cells.
func (p *Parser) row(line string) ([]string, rune, bool) {
	line = strings.TrimSpace(p.fold(line))
	if line == "" {
		return nil, 0, false
	}
	for _, d := range p.opts.Delimiters {
		if !strings.ContainsRune(line, d) {
			continue
		}
		ds := string(d)
		body := strings.TrimPrefix(line, ds)
		body = strings.TrimSuffix(body, ds)
		parts := strings.Split(body, ds)
		if len(parts) < 2 {
			continue
		}
		for k := range parts {
			parts[k] = strings.TrimSpace(parts[k])
		}
		return parts, d, true
	}
	return nil, 0, false
}

// fold maps full-width delimiter variants onto their narrow form. Other
// runes are left alone so cell text keeps its original width.
func (p *Parser) fold(line string) string {
	if !p.opts.FoldWidth {
		return line
	}
	return strings.Map(func(r rune) rune {
		if r < 0x80 {
			return r
		}
		if n := width.LookupRune(r).Narrow(); n != 0 && p.isDelimiter(n) {
			return n
		}
		return r
	}, line)
}

func (p *Parser) isDelimiter(r rune) bool {
	for _, d := range p.opts.Delimiters {
		if d == r {
			return true
		}
	}
	return false
}

// isRuleRow matches markdown alignment rows: every cell is dashes with
// optional colons, e.g. "---", ":--", ":-:".
func isRuleRow(cells []string) bool {
	for _, c := range cells {
		dashes := 0
		for _, r := range c {
			switch r {
			case '-':
				dashes++
			case ':':
			default:
				return false
			}
		}
		if dashes == 0 {
			return false
		}
	}
	return true
}
