package windowing

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/biome-agent/internal/telemetry"
)

// GroupKind tells whether a group is a lone message or a tool exchange.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupPair
)

// Group is the half-open span msgs[Start:End] that is kept or dropped as a unit.
type Group struct {
	Kind  GroupKind
	Start int
	End   int
}

// GroupBlocks splits a conversation into units that are never separated.
//
// An assistant message that calls tools and the user message answering it
// form a pair when:
//   - the user message follows directly;
//   - its tool_result blocks come before any other block (a notification or
//     trailing text may follow them);
//   - the results answer exactly the tool_use ids of the assistant message,
//     in any order, errors included.
//
// Everything else (prompts, replayed transcript lines, notifications, broken
// exchanges) is a singleton.
func GroupBlocks(msgs []anthropic.MessageParam) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); i++ {
		if reason, ok := pairsWithNext(msgs, i); ok {
			groups = append(groups, Group{Kind: GroupPair, Start: i, End: i + 2})
			i++
			continue
		} else if reason != "" {
			telemetry.Log().WithField("index", i).WithField("reason", reason).Debug("windowing: tool exchange kept as singletons")
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
	}
	return groups
}

// pairsWithNext reports whether msgs[i] and msgs[i+1] form a tool exchange.
// reason is empty when msgs[i] makes no tool calls at all.
func pairsWithNext(msgs []anthropic.MessageParam, i int) (reason string, ok bool) {
	if msgs[i].Role != anthropic.MessageParamRoleAssistant {
		return "", false
	}
	calls := toolUseIDs(msgs[i])
	if len(calls) == 0 {
		return "", false
	}
	if i+1 >= len(msgs) || msgs[i+1].Role != anthropic.MessageParamRoleUser {
		return "not_followed_by_user", false
	}
	answers, ordered := leadingResultIDs(msgs[i+1])
	switch {
	case !ordered:
		return "ordering_invalid", false
	case !subset(calls, answers):
		return "missing_results", false
	case !subset(answers, calls):
		return "extra_results", false
	}
	return "", true
}

func toolUseIDs(m anthropic.MessageParam) map[string]struct{} {
	ids := map[string]struct{}{}
	for _, blk := range m.Content {
		if tu := blk.OfToolUse; tu != nil && tu.ID != "" {
			ids[tu.ID] = struct{}{}
		}
	}
	return ids
}

// leadingResultIDs collects the tool_use ids answered by the tool_result
// blocks at the head of m. ordered is false when a result appears after a
// non-result block.
func leadingResultIDs(m anthropic.MessageParam) (ids map[string]struct{}, ordered bool) {
	ids = map[string]struct{}{}
	inResults := true
	for _, blk := range m.Content {
		tr := blk.OfToolResult
		if tr == nil {
			inResults = false
			continue
		}
		if !inResults {
			return ids, false
		}
		if tr.ToolUseID != "" {
			ids[tr.ToolUseID] = struct{}{}
		}
	}
	return ids, true
}

// subset reports whether every id in a is also in b.
func subset(a, b map[string]struct{}) bool {
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
