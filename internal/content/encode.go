// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package content

import (
	"encoding/json"
	"fmt"
)

// wireBlock is the persisted form of a block: a kind discriminant plus the
// payload of that kind.
type wireBlock struct {
	Kind Kind       `json:"kind"`
	Text string     `json:"text,omitempty"`
	Rows [][]string `json:"rows,omitempty"`
}

// MarshalBlocks encodes blocks as a JSON array of {kind, text|rows} objects.
func MarshalBlocks(blocks []Block) ([]byte, error) {
	wire := make([]wireBlock, len(blocks))
	for i, b := range blocks {
		wire[i] = Match(b,
			func(t Text) wireBlock { return wireBlock{Kind: KindText, Text: t.Text} },
			func(t Table) wireBlock { return wireBlock{Kind: KindTable, Rows: t.Rows} },
		)
	}
	return json.Marshal(wire)
}

// UnmarshalBlocks decodes the output of MarshalBlocks.
func UnmarshalBlocks(data []byte) ([]Block, error) {
	var wire []wireBlock
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode blocks: %w", err)
	}
	blocks := make([]Block, 0, len(wire))
	for i, w := range wire {
		switch w.Kind {
		case KindText:
			blocks = append(blocks, Text{Text: w.Text})
		case KindTable:
			if len(w.Rows) == 0 {
				return nil, fmt.Errorf("block %d: table without rows", i)
			}
			blocks = append(blocks, Table{Rows: w.Rows})
		default:
			return nil, fmt.Errorf("block %d: unknown kind %q", i, w.Kind)
		}
	}
	return blocks, nil
}
