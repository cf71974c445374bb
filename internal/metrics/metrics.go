package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelfeed_fetch_runs_total",
			Help: "Ingestion runs by outcome",
		},
		[]string{"outcome"},
	)

	IndicatorsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelfeed_indicators_ingested_total",
			Help: "Indicator store writes by result",
		},
		[]string{"result"},
	)

	WhitelistBlocks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intelfeed_whitelist_blocks_total",
			Help: "Candidates rejected by the whitelist",
		},
	)

	SweeperDeletions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intelfeed_sweeper_deletions_total",
			Help: "Indicators deleted after temporary activation expiry",
		},
	)

	ExportLines = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelfeed_export_lines_total",
			Help: "Lines written to blacklist export files",
		},
		[]string{"type"},
	)

	ExportRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelfeed_export_runs_total",
			Help: "Export generation runs by outcome",
		},
		[]string{"outcome"},
	)
)
