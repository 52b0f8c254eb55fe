package telemetry

import (
	"context"

	"github.com/petasbytes/calagent/internal/metrics"
)

// EmitLocalFeatures records size features of the user's input for the
// current turn.
func EmitLocalFeatures(ctx context.Context, f metrics.Features) {
	if !Enabled() {
		return
	}
	turnID, _ := TurnIDFromContext(ctx)
	Emit("local_features", map[string]any{
		"turn_id":          turnID,
		"features_version": "1",
		"user": map[string]any{
			"bytes": f.Bytes,
			"runes": f.Runes,
			"words": f.Words,
			"lines": f.Lines,
		},
	})
}
