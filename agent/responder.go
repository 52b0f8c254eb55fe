package agent

import (
	"context"
	"errors"

	"github.com/petasbytes/calagent/memory"
)

// ErrNotImplemented is returned by Placeholder.
var ErrNotImplemented = errors.New("agent: response generation not implemented")

// Responder produces the assistant reply to input. history holds every turn
// before input, oldest first.
type Responder interface {
	Respond(ctx context.Context, history []memory.Turn, input string) (string, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, history []memory.Turn, input string) (string, error)

func (f ResponderFunc) Respond(ctx context.Context, history []memory.Turn, input string) (string, error) {
	return f(ctx, history, input)
}

// Placeholder is the default Responder. It never produces a reply.
type Placeholder struct{}

func (Placeholder) Respond(context.Context, []memory.Turn, string) (string, error) {
	return "", ErrNotImplemented
}
