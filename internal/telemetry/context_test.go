package telemetry_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/petasbytes/calagent/internal/telemetry"
)

func TestTurnID_RoundTrip(t *testing.T) {
	ctx := telemetry.WithTurnID(context.Background(), "turn-123")
	got, ok := telemetry.TurnIDFromContext(ctx)
	if !ok || got != "turn-123" {
		t.Fatalf("want turn-123,true; got %q,%v", got, ok)
	}
}

func TestTurnID_EmptyIDRejectedOnRead(t *testing.T) {
	ctx := telemetry.WithTurnID(context.Background(), "")
	got, ok := telemetry.TurnIDFromContext(ctx)
	if ok || got != "" {
		t.Fatalf("want empty,false; got %q,%v", got, ok)
	}
}

func TestTurnID_ParentCancellationPropagates(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	child := telemetry.WithTurnID(parent, "t1")
	cancel()

	select {
	case <-child.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("child context did not observe parent cancellation")
	}
}

func TestTurnID_LastWriteWins(t *testing.T) {
	ctx := telemetry.WithTurnID(telemetry.WithTurnID(context.Background(), "t1"), "t2")
	if got, _ := telemetry.TurnIDFromContext(ctx); got != "t2" {
		t.Fatalf("want t2; got %q", got)
	}
}

func TestEnsureTurnID(t *testing.T) {
	ctx, id := telemetry.EnsureTurnID(context.Background())
	if !strings.HasPrefix(id, "turn-") {
		t.Fatalf("unexpected generated id %q", id)
	}
	if got, _ := telemetry.TurnIDFromContext(ctx); got != id {
		t.Fatalf("generated id not stored: %q vs %q", got, id)
	}

	keep := telemetry.WithTurnID(context.Background(), "fixed")
	ctx2, id2 := telemetry.EnsureTurnID(keep)
	if id2 != "fixed" || ctx2 != keep {
		t.Fatalf("existing id should be reused, got %q", id2)
	}

	_, other := telemetry.EnsureTurnID(context.Background())
	if other == id {
		t.Fatalf("ids must be unique, both %q", id)
	}
}
