package windowing

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/biome-agent/internal/telemetry"
)

// Stats describes a prepared window.
//
// Total is the estimated cost of the included groups only. OverBudgetNewest
// is set when the newest group alone does not fit Budget.
type Stats struct {
	Total            int
	Budget           int
	IncludedGroups   int
	SkippedGroups    int
	OverBudgetNewest bool
}

// PrepareSendWindow returns the newest suffix of msgs that fits budget
// without splitting a group, in the original order.
//
// Groups are added newest first until the next older one would overflow. The
// window then starts at its first user-led group, since the Messages API
// rejects a conversation that opens with the assistant; a lone assistant-led
// group is still sent rather than nothing. If the newest group alone exceeds
// budget, or budget <= 0, the window is empty and OverBudgetNewest is set.
func PrepareSendWindow(msgs []anthropic.MessageParam, budget int, c TokenCounter) ([]anthropic.MessageParam, Stats) {
	if len(msgs) == 0 {
		return nil, Stats{Budget: budget}
	}
	groups := GroupBlocks(msgs)
	overBudget := Stats{Budget: budget, SkippedGroups: len(groups), OverBudgetNewest: true}
	if budget <= 0 {
		return nil, overBudget
	}

	costs := make([]int, len(groups))
	for i, g := range groups {
		costs[i] = c.CountGroup(g, msgs)
	}

	newest := len(groups) - 1
	if costs[newest] > budget {
		telemetry.Log().WithField("budget", budget).WithField("cost", costs[newest]).Debug("windowing: newest group over budget")
		return nil, overBudget
	}

	first, total := newest, costs[newest]
	for first > 0 && total+costs[first-1] <= budget {
		first--
		total += costs[first]
	}
	for first < newest && msgs[groups[first].Start].Role == anthropic.MessageParamRoleAssistant {
		total -= costs[first]
		first++
	}

	included := len(groups) - first
	return msgs[groups[first].Start:], Stats{
		Total:          total,
		Budget:         budget,
		IncludedGroups: included,
		SkippedGroups:  len(groups) - included,
	}
}
