// Package export materializes the published blacklist files from the current
// indicator set. Plain-text exports are chunked per type under a configured
// line cap; domain and URL indicators additionally feed the proxy-format
// category files. Every write goes to a temporary path first and is renamed
// into place, so a concurrent consumer of the public directory never sees a
// partially written file.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"intelfeed/internal/config"
	"intelfeed/internal/database"
	"intelfeed/internal/domain"
	"intelfeed/internal/metrics"
	"intelfeed/internal/support"
)

const (
	leaderLockKey    = "intelfeed:leader:export_refresh"
	defaultOutputDir = "public/blacklist"
)

var (
	outputDir   atomic.Value
	refreshOnce singleflight.Group
)

func init() {
	outputDir.Store(defaultOutputDir)
}

// SetOutputDir overrides where export files are published.
func SetOutputDir(dir string) {
	if dir != "" {
		outputDir.Store(dir)
	}
}

// OutputDir returns the publish root for export files.
func OutputDir() string {
	return outputDir.Load().(string)
}

// typeDirs maps an indicator type to its publish subdirectory. The custom
// soar-url type shares the URL directory under its own file prefix.
var typeDirs = map[string]string{
	string(domain.TypeIP):      "IP",
	string(domain.TypeDomain):  "Domain",
	string(domain.TypeHash):    "Hash",
	string(domain.TypeURL):     "URL",
	string(domain.TypeSoarURL): "URL",
}

// Outcome summarizes one export generation run.
type Outcome struct {
	Files      int
	TotalLines int
	ByType     map[string]int
}

// StartRefreshRoutine regenerates exports on the settings-configured
// interval, rescheduling live when the interval changes. It runs under the
// leadership lock so only one instance writes the public directory.
func StartRefreshRoutine(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	var intervalValue atomic.Value
	intervalValue.Store(config.GetExportRefreshInterval())

	updateSignal := make(chan struct{}, 1)
	updates := config.ExportIntervalUpdates()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case newInterval := <-updates:
				intervalValue.Store(newInterval)
				select {
				case updateSignal <- struct{}{}:
				default:
				}
			}
		}
	}()

	err := support.RunWithLeader(ctx, leaderLockKey, support.DefaultLeadershipTTL, func(leaderCtx context.Context) {
		runRefreshLoop(leaderCtx, &intervalValue, updateSignal)
	})
	if err != nil && ctx.Err() == nil {
		log.Error("Export refresh routine stopped", "error", err)
	}
}

func runRefreshLoop(ctx context.Context, intervalValue *atomic.Value, updateSignal <-chan struct{}) {
	current := intervalValue.Load().(time.Duration)

	ticker := time.NewTicker(current)
	defer ticker.Stop()

	triggerRefresh(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			triggerRefresh(ctx, "scheduled")
		case <-updateSignal:
			newInterval := intervalValue.Load().(time.Duration)
			if newInterval == current || newInterval <= 0 {
				continue
			}
			current = newInterval
			ticker.Reset(current)
		}
	}
}

// TriggerRefreshAsync kicks off a regeneration without blocking the caller.
// Ingestion uses it after each completed batch.
func TriggerRefreshAsync(reason string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		triggerRefresh(ctx, reason)
	}()
}

func triggerRefresh(ctx context.Context, reason string) {
	outcome, err := Refresh(ctx, reason)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		metrics.ExportRuns.WithLabelValues("error").Inc()
		log.Error("Export generation failed", "reason", reason, "error", err)
		return
	}

	metrics.ExportRuns.WithLabelValues("success").Inc()
	log.Info("Export generation completed",
		"reason", reason,
		"files", outcome.Files,
		"lines", outcome.TotalLines,
	)
}

// Refresh regenerates all export files. Concurrent callers share a single
// generation run.
func Refresh(ctx context.Context, reason string) (*Outcome, error) {
	result, err, _ := refreshOnce.Do("refresh", func() (interface{}, error) {
		return doRefresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	outcome, _ := result.(*Outcome)
	return outcome, nil
}

func doRefresh(ctx context.Context) (*Outcome, error) {
	outcome := &Outcome{ByType: make(map[string]int)}
	maxLines := config.MaxExportLines()

	for _, indicatorType := range domain.AllIndicatorTypes {
		values, err := database.ListActiveValuesByType(ctx, string(indicatorType))
		if err != nil {
			return nil, fmt.Errorf("list %s indicators: %w", indicatorType, err)
		}

		lines := exportLines(indicatorType, values)
		files, err := writeChunkedFiles(string(indicatorType), lines, maxLines)
		if err != nil {
			return nil, err
		}

		outcome.Files += files
		outcome.TotalLines += len(lines)
		outcome.ByType[string(indicatorType)] = len(lines)
		metrics.ExportLines.WithLabelValues(string(indicatorType)).Add(float64(len(lines)))
	}

	files, err := writeProxyFormat(ctx)
	if err != nil {
		return nil, err
	}
	outcome.Files += files

	return outcome, nil
}

// exportLines expands values into publishable lines. Domains emit a wildcard
// variant alongside the bare name; each counts separately against the cap.
func exportLines(indicatorType domain.IndicatorType, values []string) []string {
	if indicatorType != domain.TypeDomain {
		return values
	}

	lines := make([]string, 0, len(values)*2)
	for _, value := range values {
		lines = append(lines, value, "*."+value)
	}
	return lines
}

// writeChunkedFiles publishes lines as sequentially numbered files capped at
// maxLines each, pruning leftovers from runs that produced more chunks.
func writeChunkedFiles(prefix string, lines []string, maxLines int) (int, error) {
	dir := filepath.Join(OutputDir(), typeDirs[prefix])
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return 0, fmt.Errorf("create export directory %s: %w", dir, err)
	}

	if maxLines <= 0 {
		maxLines = config.DefaultMaxFileSize
	}

	files := 0
	for start := 0; start < len(lines); start += maxLines {
		end := start + maxLines
		if end > len(lines) {
			end = len(lines)
		}

		files++
		path := filepath.Join(dir, fmt.Sprintf("%s_%d.txt", prefix, files))
		if err := writeFileAtomic(path, lines[start:end]); err != nil {
			return files, err
		}
	}

	if err := pruneStaleChunks(dir, prefix, files); err != nil {
		log.Warn("Failed to prune stale export files", "dir", dir, "prefix", prefix, "error", err)
	}

	return files, nil
}

// writeProxyFormat publishes the category-grouped, quoted files consumed by a
// web proxy: domain indicators under the domain category, url and soar-url
// indicators under the url category.
func writeProxyFormat(ctx context.Context) (int, error) {
	dir := filepath.Join(OutputDir(), "Proxy")
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return 0, fmt.Errorf("create proxy export directory: %w", err)
	}

	domains, err := database.ListActiveValuesByType(ctx, string(domain.TypeDomain))
	if err != nil {
		return 0, fmt.Errorf("list domain indicators: %w", err)
	}

	urls, err := database.ListActiveValuesByType(ctx, string(domain.TypeURL))
	if err != nil {
		return 0, fmt.Errorf("list url indicators: %w", err)
	}
	soarURLs, err := database.ListActiveValuesByType(ctx, string(domain.TypeSoarURL))
	if err != nil {
		return 0, fmt.Errorf("list soar-url indicators: %w", err)
	}
	urls = append(urls, soarURLs...)

	categories := []struct {
		name    string
		entries []string
	}{
		{name: config.DomainCategory(), entries: domains},
		{name: config.URLCategory(), entries: urls},
	}

	files := 0
	for _, category := range categories {
		path := filepath.Join(dir, category.name+".txt")
		if err := writeFileAtomic(path, proxyCategoryLines(category.name, category.entries)); err != nil {
			return files, err
		}
		files++
	}

	return files, nil
}

func proxyCategoryLines(category string, entries []string) []string {
	lines := make([]string, 0, len(entries)+2)
	lines = append(lines, category+" = {")
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("%q,", entry))
	}
	lines = append(lines, "}")
	return lines
}

func writeFileAtomic(path string, lines []string) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp export file: %w", err)
	}
	tmpPath := tmp.Name()

	var content strings.Builder
	for _, line := range lines {
		content.WriteString(line)
		content.WriteByte('\n')
	}

	if _, err := tmp.WriteString(content.String()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write export file %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close export file %s: %w", path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("publish export file %s: %w", path, err)
	}
	return nil
}

func pruneStaleChunks(dir, prefix string, keep int) error {
	pattern, err := regexp.Compile("^" + regexp.QuoteMeta(prefix) + `_(\d+)\.txt$`)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var errs []error
	for _, entry := range entries {
		match := pattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}

		var n int
		fmt.Sscanf(match[1], "%d", &n)
		if n <= keep {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
