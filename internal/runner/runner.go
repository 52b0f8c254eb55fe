package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	log "github.com/sirupsen/logrus"

	"github.com/petasbytes/calagent/internal/metrics"
	"github.com/petasbytes/calagent/internal/telemetry"
	"github.com/petasbytes/calagent/internal/windowing"
	"github.com/petasbytes/calagent/tools"
)

const (
	DefaultMaxTokens = 1024
	DefaultBudget    = 8000
	DefaultMaxSteps  = 8
)

var (
	// ErrOverBudget is returned, before any request is made, when the newest
	// message group alone exceeds the token budget.
	ErrOverBudget = errors.New("windowing: newest group exceeds token budget")
	// ErrMaxSteps is returned when the model keeps calling tools past MaxSteps.
	ErrMaxSteps = errors.New("runner: too many tool steps")
	// ErrEmptyConversation is returned when there is nothing to send.
	ErrEmptyConversation = errors.New("runner: empty conversation")
)

type Runner struct {
	Client    *anthropic.Client
	Tools     []tools.ToolDefinition
	MaxTokens int64
	Budget    int
	Counter   windowing.TokenCounter
	MaxSteps  int
	// System builds the system prompt for each request; nil sends none.
	System func() string
}

// New returns a Runner with default limits and the heuristic counter.
func New(client *anthropic.Client, toolDefs []tools.ToolDefinition) *Runner {
	return &Runner{
		Client:    client,
		Tools:     toolDefs,
		MaxTokens: DefaultMaxTokens,
		Budget:    DefaultBudget,
		Counter:   windowing.HeuristicCounter{},
		MaxSteps:  DefaultMaxSteps,
	}
}

func (r *Runner) anthropicTools() []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(r.Tools))
	for _, t := range r.Tools {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: t.InputSchema,
		}})
	}
	return out
}

func (r *Runner) counter() windowing.TokenCounter {
	if r.Counter == nil {
		return windowing.HeuristicCounter{}
	}
	return r.Counter
}

// RunOneStep sends the budgeted window of conv and executes any tool_use
// blocks in the reply. The returned tool_result blocks belong in a single
// user message appended after msg.
func (r *Runner) RunOneStep(ctx context.Context, model anthropic.Model, conv []anthropic.MessageParam) (*anthropic.Message, []anthropic.ContentBlockParamUnion, error) {
	if len(conv) == 0 {
		return nil, nil, ErrEmptyConversation
	}
	ctx, turnID := telemetry.EnsureTurnID(ctx)

	window, stats := windowing.PrepareSendWindow(conv, r.Budget, r.counter())
	telemetry.Emit("window_prepared", map[string]any{
		"turn_id":            turnID,
		"model":              string(model),
		"budget":             stats.Budget,
		"total_estimated":    stats.Total,
		"included_groups":    stats.IncludedGroups,
		"skipped_groups":     stats.SkippedGroups,
		"over_budget_newest": stats.OverBudgetNewest,
	})
	log.WithFields(log.Fields{
		"turn_id":     turnID,
		"budget":      stats.Budget,
		"est_total":   stats.Total,
		"groups_in":   stats.IncludedGroups,
		"groups_skip": stats.SkippedGroups,
		"newest_over": stats.OverBudgetNewest,
		"messages":    len(conv),
	}).Debug("window prepared")

	// The newest group is never dropped.
	if stats.OverBudgetNewest {
		return nil, nil, fmt.Errorf("%w (%d); raise token_budget", ErrOverBudget, r.Budget)
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: r.MaxTokens,
		Messages:  window,
		Tools:     r.anthropicTools(),
	}
	if r.System != nil {
		if s := r.System(); s != "" {
			params.System = []anthropic.TextBlockParam{{Text: s}}
		}
	}

	msg, err := r.Client.Messages.New(ctx, params)
	if err != nil {
		return nil, nil, fmt.Errorf("messages.new: %w", err)
	}
	metrics.RecordTokens(string(model), msg.Usage.InputTokens, msg.Usage.OutputTokens)

	toolResults := []anthropic.ContentBlockParamUnion{}
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			input := json.RawMessage(v.JSON.Input.Raw())
			toolResults = append(toolResults, r.execTool(ctx, v.ID, v.Name, input))
		}
	}
	return msg, toolResults, nil
}

// RunTurn repeats RunOneStep until the model stops calling tools. It returns
// conv extended with every exchanged message and the assistant's visible text.
// On error the conversation holds whatever was exchanged before the failure.
func (r *Runner) RunTurn(ctx context.Context, model anthropic.Model, conv []anthropic.MessageParam) ([]anthropic.MessageParam, string, error) {
	ctx, _ = telemetry.EnsureTurnID(ctx)
	maxSteps := r.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	var text []string
	for step := 0; step < maxSteps; step++ {
		msg, toolResults, err := r.RunOneStep(ctx, model, conv)
		if err != nil {
			return conv, strings.Join(text, "\n"), err
		}
		conv = append(conv, msg.ToParam())
		for _, b := range msg.Content {
			if tb, ok := b.AsAny().(anthropic.TextBlock); ok && tb.Text != "" {
				text = append(text, tb.Text)
			}
		}
		if len(toolResults) == 0 {
			return conv, strings.Join(text, "\n"), nil
		}
		conv = append(conv, anthropic.NewUserMessage(toolResults...))
	}
	return conv, strings.Join(text, "\n"), fmt.Errorf("%w (%d)", ErrMaxSteps, maxSteps)
}

func (r *Runner) execTool(ctx context.Context, id, name string, input json.RawMessage) anthropic.ContentBlockParamUnion {
	var def *tools.ToolDefinition
	for i := range r.Tools {
		if r.Tools[i].Name == name {
			def = &r.Tools[i]
			break
		}
	}

	turnID, _ := telemetry.TurnIDFromContext(ctx)
	logger := log.WithFields(log.Fields{"turn_id": turnID, "tool_name": name})

	// errStr is a fixed category; raw payloads never reach telemetry.
	emit := func(d time.Duration, outputSize int, errStr string) {
		fields := map[string]any{
			"tool_name":   name,
			"duration_ms": d.Milliseconds(),
			"input_size":  len(input),
			"output_size": outputSize,
			"turn_id":     turnID,
			"error":       nil,
		}
		outcome := metrics.OutcomeOK
		if errStr != "" {
			fields["error"] = errStr
			outcome = metrics.OutcomeError
		}
		telemetry.Emit("tool_exec", fields)
		metrics.RecordToolCall(name, outcome, d)
	}

	start := time.Now()
	if def == nil {
		logger.Warn("model requested unknown tool")
		emit(time.Since(start), 0, "tool not found")
		return anthropic.NewToolResultBlock(id, "tool not found", true)
	}

	resp, err := def.Function(ctx, input)
	if err != nil {
		logger.WithError(err).Debug("tool returned error")
		emit(time.Since(start), 0, "tool error")
		// The model gets the detailed message so it can correct its input.
		return anthropic.NewToolResultBlock(id, err.Error(), true)
	}
	emit(time.Since(start), len(resp), "")
	logger.WithField("duration", time.Since(start)).Debug("tool executed")
	return anthropic.NewToolResultBlock(id, resp, false)
}
