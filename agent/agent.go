package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/petasbytes/calagent/internal/metrics"
	"github.com/petasbytes/calagent/internal/telemetry"
	"github.com/petasbytes/calagent/memory"
)

// DefaultMaxInputRunes is the usual WithInputValidation limit.
const DefaultMaxInputRunes = 1000

// FallbackReply is recorded as the assistant turn when the responder fails.
const FallbackReply = "I encountered an error while processing your request. Please try again."

var (
	ErrEmptyInput   = errors.New("agent: message is empty")
	ErrInputTooLong = errors.New("agent: message too long")
)

// TurnHook observes every recorded turn, e.g. to persist it.
type TurnHook func(ctx context.Context, t memory.Turn) error

// Agent owns one conversation. ProcessMessage calls are serialized so a
// user turn is always directly followed by its assistant turn.
type Agent struct {
	mu            sync.Mutex
	history       *memory.History
	memory        *memory.Memory
	responder     Responder
	// maxInputRunes > 0 enables input validation.
	maxInputRunes int
	onTurn        TurnHook
	log           *log.Entry
}

type Option func(*Agent)

// WithResponder replaces the Placeholder responder.
func WithResponder(r Responder) Option {
	return func(a *Agent) { a.responder = r }
}

// WithHistory seeds the transcript, e.g. from a saved session. Prior turns
// are also replayed into short-term memory.
func WithHistory(prior []memory.Turn) Option {
	return func(a *Agent) { a.history = memory.NewHistory(prior) }
}

// WithInputValidation rejects blank messages and messages longer than
// maxRunes runes before anything is recorded. maxRunes <= 0 disables it.
func WithInputValidation(maxRunes int) Option {
	return func(a *Agent) { a.maxInputRunes = maxRunes }
}

func WithTurnHook(h TurnHook) Option {
	return func(a *Agent) { a.onTurn = h }
}

func WithLogger(l *log.Entry) Option {
	return func(a *Agent) { a.log = l }
}

// New returns an Agent with an empty history and the Placeholder responder.
func New(opts ...Option) *Agent {
	a := &Agent{
		history:       memory.NewHistory(nil),
		memory:        memory.NewMemory(),
		responder:     Placeholder{},
		log:           log.NewEntry(log.StandardLogger()),
	}
	for _, opt := range opts {
		opt(a)
	}
	for _, t := range a.history.Turns() {
		a.memory.Add(item(t))
	}
	return a
}

// History returns a copy of the transcript.
func (a *Agent) History() []memory.Turn {
	return a.history.Turns()
}

// Memory exposes the short-term buffer; callers may read it concurrently.
func (a *Agent) Memory() *memory.Memory {
	return a.memory
}

// ProcessMessage records text as a user turn, asks the responder for a
// reply and records that as an assistant turn. It returns the recorded
// reply.
//
// Every input string is recorded unless WithInputValidation is set, in which
// case rejected input (ErrEmptyInput, ErrInputTooLong) records nothing. A
// responder error still records an assistant turn: empty for
// ErrNotImplemented, FallbackReply otherwise. The error is returned wrapped.
func (a *Agent) ProcessMessage(ctx context.Context, text string) (string, error) {
	ctx, turnID := telemetry.EnsureTurnID(ctx)
	logger := a.log.WithField("turn_id", turnID)
	start := time.Now()

	feats := metrics.CountFeatures(text)
	telemetry.EmitLocalFeatures(ctx, feats)
	if err := a.validate(text, feats); err != nil {
		metrics.RecordTurn(metrics.OutcomeRejected)
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	prior := a.history.Turns()
	a.record(ctx, logger, memory.RoleUser, text)

	reply, err := a.responder.Respond(ctx, prior, text)
	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, ErrNotImplemented):
		reply = ""
		outcome = metrics.OutcomeError
	case err != nil:
		logger.WithError(err).Error("response generation failed")
		reply = FallbackReply
		outcome = metrics.OutcomeError
	}
	a.record(ctx, logger, memory.RoleAssistant, reply)

	metrics.RecordTurn(outcome)
	telemetry.Emit("turn_complete", map[string]any{
		"turn_id":     turnID,
		"outcome":     outcome,
		"duration_ms": time.Since(start).Milliseconds(),
		"history_len": a.history.Len(),
		"reply_runes": metrics.CountFeatures(reply).Runes,
	})

	if err != nil {
		return reply, fmt.Errorf("process message: %w", err)
	}
	return reply, nil
}

func (a *Agent) validate(text string, feats metrics.Features) error {
	if a.maxInputRunes <= 0 {
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	if feats.Runes > a.maxInputRunes {
		return fmt.Errorf("%w: %d runes, limit %d", ErrInputTooLong, feats.Runes, a.maxInputRunes)
	}
	return nil
}

func (a *Agent) record(ctx context.Context, logger *log.Entry, role memory.Role, content string) {
	t := a.history.Append(role, content)
	a.memory.Add(item(t))
	if a.onTurn == nil {
		return
	}
	if err := a.onTurn(ctx, t); err != nil {
		// The in-memory transcript stays authoritative.
		logger.WithError(err).WithField("role", role).Warn("turn hook failed")
	}
}

func item(t memory.Turn) memory.Item {
	return memory.Item{"role": string(t.Role), "content": t.Content}
}
