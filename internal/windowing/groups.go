// Package windowing selects the slice of a conversation that is sent to the
// model under an input-token budget.
//
// Messages are first grouped into atomic units: an assistant message with
// tool_use blocks and the user message carrying all their tool_result blocks
// form a pair and are never split; everything else is a singleton.
package windowing

import (
	"github.com/anthropics/anthropic-sdk-go"
	log "github.com/sirupsen/logrus"
)

// GroupKind denotes the atomic unit type when preparing a send window.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupPair
)

// Group is the half-open message span [Start, End).
type Group struct {
	Kind  GroupKind
	Start int
	End   int
}

// GroupMessages partitions msgs into groups, oldest first.
//
// A pair requires:
//   - an assistant message with at least one tool_use, immediately followed by a user message;
//   - in that user message, every tool_result precedes any other block;
//   - the leading tool_result ids equal the tool_use ids exactly (no missing, no extra).
//
// tool_result blocks with is_error=true pair the same way.
func GroupMessages(msgs []anthropic.MessageParam) []Group {
	groups := make([]Group, 0, len(msgs))
	i := 0
	for i < len(msgs) {
		if i+1 < len(msgs) {
			if ok, reason := isToolPair(msgs[i], msgs[i+1]); ok {
				groups = append(groups, Group{Kind: GroupPair, Start: i, End: i + 2})
				i += 2
				continue
			} else if reason != "" {
				log.WithFields(log.Fields{"reason": reason, "idx": i}).Debug("windowing: exclude pair")
			}
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	return groups
}

// isToolPair reports whether asst+user form a pair. reason is empty when
// asst carries no tool_use at all.
func isToolPair(asst, user anthropic.MessageParam) (bool, string) {
	if asst.Role != anthropic.MessageParamRoleAssistant {
		return false, ""
	}
	uses := toolUseIDs(asst)
	if len(uses) == 0 {
		return false, ""
	}
	if user.Role != anthropic.MessageParamRoleUser {
		return false, "not_followed_by_user"
	}
	results, ordered := leadingToolResultIDs(user)
	switch {
	case !ordered:
		return false, "ordering_invalid"
	case !subset(uses, results):
		return false, "missing_results"
	case !subset(results, uses):
		return false, "extra_results"
	}
	return true, ""
}

func toolUseIDs(m anthropic.MessageParam) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, blk := range m.Content {
		if tu := blk.OfToolUse; tu != nil && tu.ID != "" {
			ids[tu.ID] = struct{}{}
		}
	}
	return ids
}

// leadingToolResultIDs collects tool_result ids up to the first other block.
// ordered is false if a tool_result appears after a non-result block.
func leadingToolResultIDs(m anthropic.MessageParam) (ids map[string]struct{}, ordered bool) {
	ids = make(map[string]struct{})
	pastLeading := false
	for _, blk := range m.Content {
		tr := blk.OfToolResult
		if tr == nil {
			pastLeading = true
			continue
		}
		if pastLeading {
			return ids, false
		}
		if tr.ToolUseID != "" {
			ids[tr.ToolUseID] = struct{}{}
		}
	}
	return ids, true
}

// subset reports whether every id in a is in b.
func subset(a, b map[string]struct{}) bool {
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
