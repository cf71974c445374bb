package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/driver/sqlite"

	"intelfeed/internal/config"
	"intelfeed/internal/database"
	"intelfeed/internal/domain"
	"intelfeed/internal/export"
)

// setupIngestTest wires an isolated in-memory database and redirects export
// output into a scratch directory, since a completed run triggers an async
// export refresh.
func setupIngestTest(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	if _, err := database.SetupDB(
		database.WithDialector(sqlite.Open(dsn)),
		database.WithSeedDefaults(false),
	); err != nil {
		t.Fatalf("setup database: %v", err)
	}

	export.SetOutputDir(t.TempDir())
	config.SetConfigForTests(config.Config{})
}

func createIngestSource(t *testing.T, url string, types ...string) domain.DataSource {
	t.Helper()

	if len(types) == 0 {
		types = []string{"ip", "domain"}
	}
	source := domain.DataSource{
		Name:           "feed-" + t.Name(),
		URL:            url,
		IndicatorTypes: domain.StringList(types),
		FetchInterval:  3600,
		IsActive:       true,
	}
	if err := database.CreateDataSource(context.Background(), &source); err != nil {
		t.Fatalf("create source: %v", err)
	}
	return source
}

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunSourceIngestsAndDeduplicates(t *testing.T) {
	setupIngestTest(t)
	ctx := context.Background()

	server := feedServer(t, "1.2.3.4\nnot a line at all\n1.2.3.4\nmalware.example.com\n")
	source := createIngestSource(t, server.URL)

	summary, err := RunSource(ctx, source.ID, nil)
	if err != nil {
		t.Fatalf("run source: %v", err)
	}

	if summary.Inserted != 2 {
		t.Fatalf("inserted = %d, want 2", summary.Inserted)
	}
	if summary.Dropped != 1 {
		t.Fatalf("dropped = %d, want 1", summary.Dropped)
	}
	if summary.Candidates != 2 {
		t.Fatalf("candidates = %d, want 2 after in-batch dedup", summary.Candidates)
	}

	if _, err := database.FindIndicatorByValue(ctx, "1.2.3.4", string(domain.TypeIP)); err != nil {
		t.Fatalf("ingested ip not stored: %v", err)
	}

	stored, err := database.GetDataSource(ctx, source.ID)
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if stored.LastFetchStatus != domain.FetchStatusSuccess || stored.LastFetch == nil {
		t.Fatalf("fetch bookkeeping not recorded: %+v", stored)
	}
}

func TestRunSourceSecondRunReportsDuplicates(t *testing.T) {
	setupIngestTest(t)
	ctx := context.Background()

	server := feedServer(t, "1.2.3.4\n")
	source := createIngestSource(t, server.URL)

	if _, err := RunSource(ctx, source.ID, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}

	summary, err := RunSource(ctx, source.ID, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Inserted != 0 || summary.Duplicate != 1 {
		t.Fatalf("second run summary = %+v, want one duplicate", summary)
	}
}

func TestRunSourceWhitelistBlocks(t *testing.T) {
	setupIngestTest(t)
	ctx := context.Background()

	if err := database.CreateWhitelistEntry(ctx, &domain.WhitelistEntry{
		Value:  "10.0.0.0/8",
		Type:   string(domain.TypeIP),
		Reason: "internal range",
	}); err != nil {
		t.Fatalf("create whitelist entry: %v", err)
	}

	server := feedServer(t, "10.1.2.3\n8.8.4.4\n")
	source := createIngestSource(t, server.URL)

	summary, err := RunSource(ctx, source.ID, nil)
	if err != nil {
		t.Fatalf("run source: %v", err)
	}
	if summary.Blocked != 1 || summary.Inserted != 1 {
		t.Fatalf("summary = %+v, want 1 blocked and 1 inserted", summary)
	}

	if _, err := database.FindIndicatorByValue(ctx, "10.1.2.3", string(domain.TypeIP)); !errors.Is(err, database.ErrIndicatorNotFound) {
		t.Fatal("whitelisted value reached the indicator store")
	}

	blocks, total, err := database.ListWhitelistBlocks(ctx, 1, 10)
	if err != nil {
		t.Fatalf("list blocks: %v", err)
	}
	if total != 1 || blocks[0].Value != "10.1.2.3" {
		t.Fatalf("blocks = %+v, want the blocked candidate recorded", blocks)
	}
}

func TestRunSourceFetchFailureIsRecorded(t *testing.T) {
	setupIngestTest(t)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	source := createIngestSource(t, server.URL)

	if _, err := RunSource(ctx, source.ID, nil); err == nil {
		t.Fatal("expected fetch error")
	}

	stored, err := database.GetDataSource(ctx, source.ID)
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if stored.LastFetchStatus != domain.FetchStatusError || stored.LastFetchError == "" {
		t.Fatalf("failure not recorded on source: %+v", stored)
	}
}

func TestRunSourceRejectsPausedAndInactive(t *testing.T) {
	setupIngestTest(t)
	ctx := context.Background()

	server := feedServer(t, "1.2.3.4\n")

	paused := createIngestSource(t, server.URL)
	if err := database.SetDataSourcePaused(ctx, paused.ID, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := RunSource(ctx, paused.ID, nil); !errors.Is(err, ErrSourcePaused) {
		t.Fatalf("err = %v, want ErrSourcePaused", err)
	}

	inactive := domain.DataSource{
		Name:           "inactive-" + t.Name(),
		URL:            server.URL,
		IndicatorTypes: domain.StringList{"ip"},
		FetchInterval:  3600,
		IsActive:       false,
	}
	if err := database.CreateDataSource(ctx, &inactive); err != nil {
		t.Fatalf("create inactive source: %v", err)
	}
	if _, err := RunSource(ctx, inactive.ID, nil); !errors.Is(err, ErrSourceInactive) {
		t.Fatalf("err = %v, want ErrSourceInactive", err)
	}
}

func TestRunSourceRejectsConcurrentRun(t *testing.T) {
	setupIngestTest(t)
	ctx := context.Background()

	server := feedServer(t, "1.2.3.4\n")
	source := createIngestSource(t, server.URL)

	if !runLocks.TryAcquire(source.ID) {
		t.Fatal("could not seed the run lock")
	}
	defer runLocks.Release(source.ID)

	if _, err := RunSource(ctx, source.ID, nil); !errors.Is(err, ErrSourceRunning) {
		t.Fatalf("err = %v, want ErrSourceRunning", err)
	}
	if !IsRunning(source.ID) {
		t.Fatal("rejected run released a lock it never held")
	}
}

func TestCollectCandidatesRespectsDeclaredTypes(t *testing.T) {
	source := domain.DataSource{
		Name:           "domains-only",
		IndicatorTypes: domain.StringList{"domain"},
	}

	summary := &Summary{}
	candidates := collectCandidates("1.2.3.4\nmalware.example.com\n# comment\n", source, config.Config{}, summary)

	if len(candidates) != 1 || candidates[0].value != "malware.example.com" {
		t.Fatalf("candidates = %+v, want only the domain", candidates)
	}
	if summary.Dropped != 1 {
		t.Fatalf("dropped = %d, want the undeclared ip dropped", summary.Dropped)
	}
}
