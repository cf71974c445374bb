package bootstrap

import (
	"context"

	"github.com/charmbracelet/log"

	"intelfeed/internal/audit"
	"intelfeed/internal/config"
	"intelfeed/internal/database"
	"intelfeed/internal/export"
	"intelfeed/internal/jobs/scheduler"
	"intelfeed/internal/jobs/sweeper"
)

// Setup loads settings, opens the database and starts every background
// routine. It must run exactly once before the API server accepts traffic.
func Setup(ctx context.Context) {
	config.ReadSettings()

	if _, err := database.SetupDB(); err != nil {
		log.Fatalf("failed to set up database: %v", err)
	}

	sources, err := database.ListDataSources(ctx)
	if err != nil {
		log.Error("Error listing data sources on startup", "error", err)
	} else {
		log.Infof("Loaded %d data sources", len(sources))
	}

	// Routines

	go audit.StartSinkRoutine(ctx)
	go scheduler.StartDriverRoutine(ctx)
	go sweeper.StartSweepRoutine(ctx)
	go export.StartRefreshRoutine(ctx)
}
