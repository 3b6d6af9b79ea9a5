package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TriggerPruner deletes archived trigger records older than a cutoff
type TriggerPruner interface {
	DeleteTriggerRecordsOlderThan(ctx context.Context, date time.Time) (int64, error)
}

// RunRetention prunes archived trigger records older than maxAge once per
// interval until ctx is cancelled. The first pass runs immediately.
func RunRetention(ctx context.Context, pruner TriggerPruner, interval, maxAge time.Duration, logger zerolog.Logger) {
	logger = logger.With().Str("component", "retention").Logger()

	prune := func() {
		deleted, err := pruner.DeleteTriggerRecordsOlderThan(ctx, time.Now().Add(-maxAge))
		if err != nil {
			logger.Error().Err(err).Msg("Failed to prune trigger archive")
			return
		}
		if deleted > 0 {
			logger.Info().Int64("deleted", deleted).Msg("Pruned trigger archive")
		}
	}

	prune()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
