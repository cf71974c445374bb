// Package ingest orchestrates one data source run: fetch, classify, whitelist
// check, store write, audit.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"intelfeed/internal/audit"
	"intelfeed/internal/classify"
	"intelfeed/internal/config"
	"intelfeed/internal/database"
	"intelfeed/internal/domain"
	"intelfeed/internal/export"
	"intelfeed/internal/jobs/fetcher"
	"intelfeed/internal/metrics"
	"intelfeed/internal/whitelist"
)

// User-facing rejections for a run that cannot start.
var (
	ErrSourceRunning  = errors.New("a fetch for this data source is already running")
	ErrSourcePaused   = errors.New("data source is paused")
	ErrSourceInactive = errors.New("data source is not active")
)

// Summary reports the counts of one completed ingestion run.
type Summary struct {
	RunID      string `json:"runId"`
	Fetched    int    `json:"fetched"`
	Candidates int    `json:"candidates"`
	Inserted   int    `json:"inserted"`
	Duplicate  int    `json:"duplicate"`
	Blocked    int    `json:"blocked"`
	Dropped    int    `json:"dropped"`
}

type candidate struct {
	value  string
	result classify.Result
}

// RunSource executes the full ingestion path for one data source. Manual
// "fetch now" calls go through the exact same function; userID attributes the
// trigger in the audit trail and is nil for scheduled runs.
func RunSource(ctx context.Context, sourceID uint64, userID *uint64) (*Summary, error) {
	source, err := database.GetDataSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if !source.IsActive {
		return nil, ErrSourceInactive
	}
	if source.IsPaused {
		return nil, ErrSourcePaused
	}

	if !runLocks.TryAcquire(source.ID) {
		return nil, ErrSourceRunning
	}
	defer runLocks.Release(source.ID)

	runID := uuid.NewString()
	cfg := config.GetConfig()
	now := time.Now().UTC()

	body, err := fetcher.Fetch(ctx, source, cfg)
	if err != nil {
		return nil, recordFetchFailure(ctx, source, userID, err)
	}

	if err := database.MarkFetchSuccess(ctx, source.ID, now); err != nil {
		log.Error("Failed to record fetch success", "source", source.Name, "error", err)
	}

	matcher, err := whitelist.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load whitelist: %w", err)
	}

	summary := &Summary{RunID: runID}
	candidates := collectCandidates(body, source, cfg, summary)

	for _, cand := range candidates {
		if entry, matched := matcher.Match(cand.value, string(cand.result.Type)); matched {
			recordBlock(ctx, source, cand, entry)
			summary.Blocked++
			continue
		}

		inserted, err := database.UpsertIndicator(ctx, domain.Indicator{
			Value:    cand.value,
			Type:     string(cand.result.Type),
			HashType: string(cand.result.HashType),
			Source:   source.Name,
			SourceID: &source.ID,
			IsActive: true,
		})
		if err != nil {
			log.Error("Indicator upsert failed", "source", source.Name, "value", cand.value, "error", err)
			continue
		}
		if inserted {
			summary.Inserted++
			metrics.IndicatorsIngested.WithLabelValues("inserted").Inc()
		} else {
			summary.Duplicate++
			metrics.IndicatorsIngested.WithLabelValues("duplicate").Inc()
		}
	}

	metrics.FetchRuns.WithLabelValues("success").Inc()
	recordRunSummary(source, userID, summary)

	log.Info("Ingestion run completed",
		"source", source.Name,
		"run_id", runID,
		"fetched", summary.Fetched,
		"inserted", summary.Inserted,
		"duplicate", summary.Duplicate,
		"blocked", summary.Blocked,
	)

	export.TriggerRefreshAsync("ingestion")

	return summary, nil
}

// collectCandidates splits the body into lines, classifies each against the
// source's declared types, and deduplicates (value, type) within the batch.
func collectCandidates(body string, source domain.DataSource, cfg config.Config, summary *Summary) []candidate {
	opts := classify.Options{
		Declared:    source.DeclaredTypes(),
		SoarEnabled: cfg.System.EnableSoarURL,
	}

	lines := strings.Split(body, "\n")
	summary.Fetched = len(lines)

	seen := make(map[string]struct{})
	candidates := make([]candidate, 0, len(lines))

	for _, raw := range lines {
		value, ok := classify.NormalizeLine(raw)
		if !ok {
			continue
		}

		result, ok := classify.Classify(value, opts)
		if !ok {
			summary.Dropped++
			continue
		}

		key := string(result.Type) + "|" + value
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		candidates = append(candidates, candidate{value: value, result: result})
	}

	summary.Candidates = len(candidates)
	return candidates
}

func recordFetchFailure(ctx context.Context, source domain.DataSource, userID *uint64, fetchErr error) error {
	message := fetchErr.Error()

	if err := database.MarkFetchFailure(ctx, source.ID, time.Now().UTC(), message); err != nil {
		log.Error("Failed to record fetch failure", "source", source.Name, "error", err)
	}

	audit.Record(domain.AuditLog{
		Level:      domain.AuditError,
		Action:     domain.ActionFetch,
		Resource:   "data_source",
		ResourceID: strconv.FormatUint(source.ID, 10),
		Details:    fmt.Sprintf("fetch failed for %s: %s", source.Name, message),
		UserID:     userID,
	})

	metrics.FetchRuns.WithLabelValues("error").Inc()
	log.Warn("Feed fetch failed", "source", source.Name, "error", message)

	return fmt.Errorf("fetch %s: %w", source.Name, fetchErr)
}

func recordBlock(ctx context.Context, source domain.DataSource, cand candidate, entry domain.WhitelistEntry) {
	block := domain.WhitelistBlock{
		Value:          cand.value,
		Type:           string(cand.result.Type),
		Source:         source.URL,
		SourceName:     source.Name,
		BlockedReason:  blockedReason(entry),
		WhitelistValue: entry.Value,
	}
	if err := database.InsertWhitelistBlock(ctx, &block); err != nil {
		log.Error("Failed to record whitelist block", "value", cand.value, "error", err)
	}

	audit.Record(domain.AuditLog{
		Level:      domain.AuditWarning,
		Action:     domain.ActionBlocked,
		Resource:   "indicator",
		ResourceID: cand.value,
		Details:    fmt.Sprintf("candidate %s blocked by whitelist entry %s", cand.value, entry.Value),
	})

	metrics.WhitelistBlocks.Inc()
}

func blockedReason(entry domain.WhitelistEntry) string {
	if entry.Reason != "" {
		return fmt.Sprintf("whitelisted: %s", entry.Reason)
	}
	return "matched whitelist entry " + entry.Value
}

func recordRunSummary(source domain.DataSource, userID *uint64, summary *Summary) {
	metadata, err := json.Marshal(summary)
	if err != nil {
		metadata = nil
	}

	audit.Record(domain.AuditLog{
		Level:      domain.AuditInfo,
		Action:     domain.ActionFetch,
		Resource:   "data_source",
		ResourceID: strconv.FormatUint(source.ID, 10),
		Details: fmt.Sprintf("fetched %s: %d lines, %d new, %d duplicate, %d blocked",
			source.Name, summary.Fetched, summary.Inserted, summary.Duplicate, summary.Blocked),
		UserID:   userID,
		Metadata: string(metadata),
	})
}
