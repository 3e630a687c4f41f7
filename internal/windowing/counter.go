package windowing

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
)

// TokenCounter estimates the input cost of messages.
type TokenCounter interface {
	CountMessage(m anthropic.MessageParam) int
	CountGroup(g Group, all []anthropic.MessageParam) int
}

// HeuristicCounter charges one unit per rune of visible payload plus a fixed
// overhead per block. It overestimates real tokens, which leaves headroom.
//
//   - text: the text
//   - tool_use: the tool name and its JSON input
//   - tool_result: the nested text blocks
//   - anything else: overhead only
type HeuristicCounter struct{}

// blockOverhead is charged once per content block.
const blockOverhead = 4

func (HeuristicCounter) CountMessage(m anthropic.MessageParam) int {
	n := 0
	for _, blk := range m.Content {
		n += blockCost(blk)
	}
	return n
}

func (h HeuristicCounter) CountGroup(g Group, all []anthropic.MessageParam) int {
	n := 0
	for i := g.Start; i < g.End && i < len(all); i++ {
		n += h.CountMessage(all[i])
	}
	return n
}

func blockCost(blk anthropic.ContentBlockParamUnion) int {
	switch {
	case blk.OfText != nil:
		return utf8.RuneCountInString(blk.OfText.Text) + blockOverhead
	case blk.OfToolUse != nil:
		n := utf8.RuneCountInString(blk.OfToolUse.Name)
		if blk.OfToolUse.Input != nil {
			if b, err := json.Marshal(blk.OfToolUse.Input); err == nil {
				n += utf8.RuneCount(b)
			}
		}
		return n + blockOverhead
	case blk.OfToolResult != nil:
		n := 0
		for _, c := range blk.OfToolResult.Content {
			if c.OfText != nil {
				n += utf8.RuneCountInString(c.OfText.Text)
			}
		}
		return n + blockOverhead
	}
	return blockOverhead
}
