package windowing

import (
	"github.com/anthropics/anthropic-sdk-go"
	log "github.com/sirupsen/logrus"
)

// Stats summarizes the result of window preparation.
//
// Fields:
// - Total: estimated tokens for included groups only.
// - Budget: the input token budget used.
// - IncludedGroups: number of groups included.
// - SkippedGroups: total groups minus IncludedGroups.
// - OverBudgetNewest: true when the newest single group alone exceeds Budget.
type Stats struct {
	Total            int
	Budget           int
	IncludedGroups   int
	SkippedGroups    int
	OverBudgetNewest bool
}

// PrepareSendWindow returns the newest suffix of msgs (oldest→newest order
// kept) whose whole groups fit in budget.
//
// Rules:
// - Groups are added newest→oldest while the running total stays ≤ budget; the first misfit stops the scan.
// - If the newest group alone exceeds budget (or budget ≤ 0), the window is empty and OverBudgetNewest is set.
func PrepareSendWindow(msgs []anthropic.MessageParam, budget int, c TokenCounter) ([]anthropic.MessageParam, Stats) {
	stats := Stats{Budget: budget}
	if len(msgs) == 0 {
		return nil, stats
	}
	groups := GroupMessages(msgs)

	start := len(groups)
	for gi := len(groups) - 1; gi >= 0; gi-- {
		if budget <= 0 {
			break
		}
		cost := CountGroup(c, groups[gi], msgs)
		if stats.Total+cost > budget {
			break
		}
		stats.Total += cost
		start = gi
	}

	stats.IncludedGroups = len(groups) - start
	stats.SkippedGroups = start
	if stats.IncludedGroups == 0 {
		stats.Total = 0
		stats.OverBudgetNewest = true
		log.WithField("budget", budget).Debug("windowing: newest group over budget")
		return nil, stats
	}
	return msgs[groups[start].Start:], stats
}
