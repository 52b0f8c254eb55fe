package agent

import (
	"context"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/calagent/internal/runner"
	"github.com/petasbytes/calagent/memory"
)

// LLMResponder answers through the tool-use runner. It keeps the full SDK
// conversation, tool blocks included, between calls; the history argument
// of Respond is only used to seed it on first use.
type LLMResponder struct {
	mu     sync.Mutex
	runner *runner.Runner
	model  anthropic.Model
	conv   []anthropic.MessageParam
	seeded bool
}

func NewLLMResponder(r *runner.Runner, model anthropic.Model) *LLMResponder {
	return &LLMResponder{runner: r, model: model}
}

func (l *LLMResponder) Respond(ctx context.Context, history []memory.Turn, input string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.seeded {
		l.conv = seedConversation(history)
		l.seeded = true
	}

	n := len(l.conv)
	conv := append(l.conv, anthropic.NewUserMessage(anthropic.NewTextBlock(input)))
	conv, text, err := l.runner.RunTurn(ctx, l.model, conv)
	if err != nil {
		// A partial exchange may end in an unanswered tool_use.
		l.conv = l.conv[:n]
		return "", err
	}
	l.conv = conv
	return text, nil
}

// seedConversation turns text transcripts into SDK messages. System turns
// and empty turns are skipped; the API rejects empty text blocks.
func seedConversation(turns []memory.Turn) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		switch t.Role {
		case memory.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Content)))
		case memory.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Content)))
		}
	}
	return out
}
