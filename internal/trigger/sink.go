package trigger

import (
	"context"

	"github.com/trogers1052/investment-simulator/internal/models"
)

// Sink receives trigger history changes after they are committed to the
// store. Sinks are side channels: their errors are logged, never propagated
// into engine state.
type Sink interface {
	TriggerActivated(ctx context.Context, rec models.TriggerRecord) error
	TriggerAcknowledged(ctx context.Context, rec models.TriggerRecord) error
}
