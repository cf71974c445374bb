// Package sweeper expires time-limited indicator activations. A temporary
// activation is a self-destructing grant: once the deadline passes, the
// indicator row is deleted outright rather than downgraded to inactive.
package sweeper

import (
	"context"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"intelfeed/internal/audit"
	"intelfeed/internal/database"
	"intelfeed/internal/domain"
	"intelfeed/internal/metrics"
	"intelfeed/internal/support"
)

const (
	sweepInterval = time.Minute
	leaderLockKey = "intelfeed:leader:temp_sweep"
)

// StartSweepRoutine runs the expiry sweep every minute while holding the
// leadership lock, so only one instance sweeps at a time.
func StartSweepRoutine(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	err := support.RunWithLeader(ctx, leaderLockKey, support.DefaultLeadershipTTL, func(leaderCtx context.Context) {
		runSweepLoop(leaderCtx)
	})
	if err != nil && ctx.Err() == nil {
		log.Error("Temp-activation sweeper stopped", "error", err)
	}
}

func runSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := Sweep(ctx, time.Now().UTC()); removed > 0 {
				log.Info("Temp-activation sweep completed", "removed", removed)
			}
		}
	}
}

// Sweep deletes every indicator whose temporary activation lapsed before
// now and records one cleanup audit entry per deletion. Rows are processed
// independently; one failure never aborts the rest, and a row already gone
// (swept concurrently or deleted by hand) is silently skipped, which makes
// repeated sweeps over the same deadline a no-op.
func Sweep(ctx context.Context, now time.Time) int {
	expired, err := database.ListExpiredTempIndicators(ctx, now)
	if err != nil {
		log.Error("Failed to query expired temp activations", "error", err)
		return 0
	}

	removed := 0
	for _, indicator := range expired {
		deleted, err := database.DeleteIndicator(ctx, indicator.ID)
		if err != nil {
			log.Warn("Failed to delete expired indicator", "id", indicator.ID, "value", indicator.Value, "error", err)
			continue
		}
		if !deleted {
			continue
		}

		audit.Record(domain.AuditLog{
			Level:      domain.AuditInfo,
			Action:     domain.ActionCleanup,
			Resource:   "indicator",
			ResourceID: strconv.FormatUint(indicator.ID, 10),
			Details:    "temporary activation expired, indicator deleted: " + indicator.Value,
		})

		metrics.SweeperDeletions.Inc()
		removed++
	}

	return removed
}
