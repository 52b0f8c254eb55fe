package windowing_test

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/calagent/internal/windowing"
)

func TestPrepareSendWindow_KeepsNewestThatFit(t *testing.T) {
	msgs := []anthropic.MessageParam{
		user(text("old")),              // 7
		asst(toolUse("a")),             // 4
		user(toolResultText("a", "r")), // 5, pair = 9
		user(text("tail")),             // 8
	}

	window, stats := windowing.PrepareSendWindow(msgs, 17, windowing.HeuristicCounter{})

	if stats.Total != 17 || stats.IncludedGroups != 2 || stats.SkippedGroups != 1 || stats.OverBudgetNewest {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(window) != 3 || window[0].Role != anthropic.MessageParamRoleAssistant {
		t.Fatalf("expected msgs[1:], got %d messages", len(window))
	}
}

func TestPrepareSendWindow_AllFit(t *testing.T) {
	msgs := []anthropic.MessageParam{user(text("a")), asst(text("b"))}
	window, stats := windowing.PrepareSendWindow(msgs, 100, windowing.HeuristicCounter{})
	if len(window) != 2 || stats.Total != 10 || stats.SkippedGroups != 0 {
		t.Fatalf("unexpected result: len=%d stats=%+v", len(window), stats)
	}
}

func TestPrepareSendWindow_NeverSplitsPair(t *testing.T) {
	msgs := []anthropic.MessageParam{
		asst(toolUse("a")),
		user(toolResultText("a", "xxxxxxxxxx")), // pair = 4 + 14 = 18
		user(text("next")),                      // 8
	}
	// Room for the newest group and the result half of the pair, but not the whole pair.
	window, stats := windowing.PrepareSendWindow(msgs, 22, windowing.HeuristicCounter{})
	if len(window) != 1 || stats.IncludedGroups != 1 || stats.Total != 8 {
		t.Fatalf("pair must be dropped whole: len=%d stats=%+v", len(window), stats)
	}
}

func TestPrepareSendWindow_StopsAtFirstMisfit(t *testing.T) {
	msgs := []anthropic.MessageParam{
		user(text("x")),                   // 5, would fit on its own
		asst(text("a much longer reply")), // 23
		user(text("y")),                   // 5
	}
	window, stats := windowing.PrepareSendWindow(msgs, 20, windowing.HeuristicCounter{})
	if len(window) != 1 || stats.SkippedGroups != 2 {
		t.Fatalf("older groups must not be scanned past a misfit: len=%d stats=%+v", len(window), stats)
	}
}

func TestPrepareSendWindow_NewestOverBudget(t *testing.T) {
	msgs := []anthropic.MessageParam{
		user(text("old")),
		asst(toolUse("a")),
		user(toolResultText("a", "xxxxxx")), // pair = 14
	}
	window, stats := windowing.PrepareSendWindow(msgs, 10, windowing.HeuristicCounter{})
	if len(window) != 0 || !stats.OverBudgetNewest || stats.IncludedGroups != 0 || stats.Total != 0 {
		t.Fatalf("unexpected result: len=%d stats=%+v", len(window), stats)
	}
}

func TestPrepareSendWindow_ZeroBudget(t *testing.T) {
	window, stats := windowing.PrepareSendWindow([]anthropic.MessageParam{user(text("x"))}, 0, windowing.HeuristicCounter{})
	if len(window) != 0 || !stats.OverBudgetNewest || stats.SkippedGroups != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestPrepareSendWindow_Empty(t *testing.T) {
	window, stats := windowing.PrepareSendWindow(nil, 10, windowing.HeuristicCounter{})
	if window != nil || stats.OverBudgetNewest || stats.Budget != 10 {
		t.Fatalf("unexpected result: %v %+v", window, stats)
	}
}
