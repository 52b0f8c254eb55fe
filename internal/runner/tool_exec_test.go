package runner_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/calagent/internal/provider"
	"github.com/petasbytes/calagent/internal/runner"
	"github.com/petasbytes/calagent/internal/telemetry"
	"github.com/petasbytes/calagent/tools"
)

func observe(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	telemetry.Configure(true, dir)
	t.Cleanup(func() { telemetry.Configure(false, "") })
	return dir
}

func lastEvent(t *testing.T, dir, name string) map[string]any {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, telemetry.EventsFile))
	if err != nil {
		t.Fatalf("open events: %v", err)
	}
	defer f.Close()
	var found map[string]any
	s := bufio.NewScanner(f)
	for s.Scan() {
		var m map[string]any
		if err := json.Unmarshal(s.Bytes(), &m); err != nil {
			t.Fatalf("invalid JSON line: %v", err)
		}
		if m["event"] == name {
			found = m
		}
	}
	if found == nil {
		t.Fatalf("no %s event found", name)
	}
	return found
}

func runOne(t *testing.T, r *runner.Runner) []anthropic.ContentBlockParamUnion {
	t.Helper()
	conv := []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock("go"))}
	_, results, err := r.RunOneStep(context.Background(), provider.DefaultModel, conv)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	return results
}

func TestToolExec_JSONL_Success(t *testing.T) {
	dir := observe(t)
	ft := &fakeTransport{responses: []string{toolReply("t1", "list_events", listInput)}}
	r, _ := newRunner(t, ft)
	runOne(t, r)

	exec := lastEvent(t, dir, "tool_exec")
	if exec["tool_name"] != "list_events" {
		t.Errorf("tool_name: want list_events, got %v", exec["tool_name"])
	}
	if v, ok := exec["input_size"].(float64); !ok || int(v) != len(listInput) {
		t.Errorf("input_size: want %d, got %v", len(listInput), exec["input_size"])
	}
	if v, ok := exec["output_size"].(float64); !ok || v <= 0 {
		t.Errorf("output_size should be > 0, got %v", exec["output_size"])
	}
	if v, ok := exec["error"]; !ok || v != nil {
		t.Errorf("error should be present and null, got %v", v)
	}
	wp := lastEvent(t, dir, "window_prepared")
	if s, _ := exec["turn_id"].(string); s == "" || s != wp["turn_id"] {
		t.Errorf("turn_id mismatch: %v vs %v", exec["turn_id"], wp["turn_id"])
	}
	for _, k := range []string{"input", "output", "timeMin"} {
		if _, ok := exec[k]; ok {
			t.Errorf("payload field %q leaked into telemetry", k)
		}
	}
}

func TestToolExec_HandlerError(t *testing.T) {
	dir := observe(t)
	errTool := tools.ToolDefinition{
		Name:        "err_tool",
		Description: "always errors",
		InputSchema: tools.GenerateSchema[struct{}](),
		Function: func(context.Context, json.RawMessage) (string, error) {
			return "", errors.New("boom: secret detail")
		},
	}
	ft := &fakeTransport{responses: []string{toolReply("e1", "err_tool", `{"x":1}`)}}
	r := runner.New(newClient(ft), []tools.ToolDefinition{errTool})

	results := runOne(t, r)
	tr := results[0].OfToolResult
	if tr == nil || !tr.IsError.Value || tr.Content[0].OfText.Text != "boom: secret detail" {
		t.Fatalf("expected is_error result with detail, got %+v", results[0])
	}

	exec := lastEvent(t, dir, "tool_exec")
	if exec["error"] != "tool error" {
		t.Errorf("expected generic error category, got %v", exec["error"])
	}
	if v, _ := exec["output_size"].(float64); v != 0 {
		t.Errorf("output_size should be 0 on error, got %v", v)
	}
}

func TestToolExec_ToolNotFound(t *testing.T) {
	dir := observe(t)
	ft := &fakeTransport{responses: []string{toolReply("nf1", "does_not_exist", `{}`)}}
	r, _ := newRunner(t, ft)

	results := runOne(t, r)
	tr := results[0].OfToolResult
	if tr == nil || !tr.IsError.Value || tr.ToolUseID != "nf1" {
		t.Fatalf("expected is_error result, got %+v", results[0])
	}
	if exec := lastEvent(t, dir, "tool_exec"); exec["error"] != "tool not found" {
		t.Errorf("unexpected error field %v", exec["error"])
	}
}

func TestToolExec_MalformedInputIsErrorResult(t *testing.T) {
	observe(t)
	ft := &fakeTransport{responses: []string{toolReply("d1", "delete_event", `{}`)}}
	r, _ := newRunner(t, ft)

	results := runOne(t, r)
	tr := results[0].OfToolResult
	if tr == nil || !tr.IsError.Value {
		t.Fatalf("missing eventId should be an is_error result, got %+v", results[0])
	}
	if txt := tr.Content[0].OfText.Text; !strings.Contains(strings.ToLower(txt), "eventid") {
		t.Fatalf("unexpected error text %q", txt)
	}
}
