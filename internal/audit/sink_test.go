package audit

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"

	"intelfeed/internal/database"
	"intelfeed/internal/domain"
)

func setupAuditTest(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	if _, err := database.SetupDB(
		database.WithDialector(sqlite.Open(dsn)),
		database.WithSeedDefaults(false),
	); err != nil {
		t.Fatalf("setup database: %v", err)
	}

	if err := Flush(context.Background()); err != nil {
		t.Fatalf("drain queue: %v", err)
	}
}

func countAuditRows(t *testing.T) int64 {
	t.Helper()

	var count int64
	if err := database.DB.Model(&domain.AuditLog{}).Count(&count).Error; err != nil {
		t.Fatalf("count audit rows: %v", err)
	}
	return count
}

func TestRecordAndFlush(t *testing.T) {
	setupAuditTest(t)
	ctx := context.Background()

	Record(domain.AuditLog{
		Level:    domain.AuditInfo,
		Action:   domain.ActionCreate,
		Resource: "indicator",
		Details:  "created manually",
	})
	Record(domain.AuditLog{
		Level:    domain.AuditWarning,
		Action:   domain.ActionBlocked,
		Resource: "indicator",
		Details:  "blocked by whitelist",
	})

	// Nothing reaches the store until a flush happens.
	if count := countAuditRows(t); count != 0 {
		t.Fatalf("rows before flush = %d, want 0", count)
	}

	if err := Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if count := countAuditRows(t); count != 2 {
		t.Fatalf("rows after flush = %d, want 2", count)
	}
}

func TestFlushEmptyQueueIsNoOp(t *testing.T) {
	setupAuditTest(t)

	if err := Flush(context.Background()); err != nil {
		t.Fatalf("flush empty queue: %v", err)
	}
	if count := countAuditRows(t); count != 0 {
		t.Fatalf("rows = %d, want 0", count)
	}
}

func TestRecordPreservesOrder(t *testing.T) {
	setupAuditTest(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		Record(domain.AuditLog{
			Level:    domain.AuditInfo,
			Action:   domain.ActionUpdate,
			Resource: "indicator",
			Details:  fmt.Sprintf("event %d", i),
		})
	}
	if err := Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	var entries []domain.AuditLog
	if err := database.DB.Order("id").Find(&entries).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("entries = %d, want 5", len(entries))
	}
	for i, entry := range entries {
		if entry.Details != fmt.Sprintf("event %d", i) {
			t.Fatalf("entry %d = %q, out of order", i, entry.Details)
		}
	}
}
