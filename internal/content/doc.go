// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package content turns raw assistant replies into renderable blocks.
//
// The backend returns one opaque string per answer. Models often embed
// small pipe-delimited tables in that text ("价格 | 库存"), so the parser
// splits a reply into an ordered sequence of prose and table blocks without
// relying on any structured wire format.
//
// # Key Types
//
//   - Block: sealed sum type, implemented by Text and Table
//   - Parser: line-oriented table detector configured by Options
//
// # Usage
//
//	blocks := content.Parse("价格 | 库存\n苹果 | 10\n香蕉 | 5")
//	for _, b := range blocks {
//	    content.Match(b,
//	        func(t content.Text) string { return t.Text },
//	        func(t content.Table) string { return strings.Join(t.Header(), ",") },
//	    )
//	}
//
// Parsing is total: malformed input degrades to a single text block.
package content
