// Package audit is the write side of the audit trail. Events are buffered in
// memory and flushed to the store in batches so pipeline hot paths never wait
// on an audit insert.
package audit

import (
	"context"
	"sync"
	"time"

	"intelfeed/internal/database"
	"intelfeed/internal/domain"

	"github.com/charmbracelet/log"
)

const (
	flushInterval  = 5 * time.Second
	batchThreshold = 1000
	insertTimeout  = 30 * time.Second
)

var (
	entryQueue   = make(chan domain.AuditLog, 100_000)
	flushTracker sync.WaitGroup
)

// Record enqueues one audit event. Safe for concurrent use; drops nothing
// unless the buffer is full, in which case the event is written synchronously.
func Record(entry domain.AuditLog) {
	select {
	case entryQueue <- entry:
	default:
		dbCtx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		defer cancel()
		if err := database.InsertAuditLogs(dbCtx, []domain.AuditLog{entry}); err != nil {
			log.Error("Failed to insert audit entry", "action", entry.Action, "error", err)
		}
	}
}

// StartSinkRoutine runs the flush loop until the context ends, then drains
// the queue so shutdown never loses buffered events.
func StartSinkRoutine(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	var buffer []domain.AuditLog
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			drainQueue(&buffer)
			flush(&buffer)
			flushTracker.Wait()
			return
		case entry := <-entryQueue:
			buffer = append(buffer, entry)
			if len(buffer) >= batchThreshold {
				flush(&buffer)
			}
		case <-ticker.C:
			flush(&buffer)
		}
	}
}

// Flush synchronously drains and writes everything queued so far. Tests use
// it to observe audit rows deterministically.
func Flush(ctx context.Context) error {
	var buffer []domain.AuditLog
	drainQueue(&buffer)
	if len(buffer) == 0 {
		return nil
	}
	return database.InsertAuditLogs(ctx, buffer)
}

func flush(buffer *[]domain.AuditLog) {
	if len(*buffer) == 0 {
		return
	}

	toInsert := *buffer
	*buffer = nil

	flushTracker.Add(1)
	go func(entries []domain.AuditLog) {
		defer flushTracker.Done()

		dbCtx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		defer cancel()

		if err := database.InsertAuditLogs(dbCtx, entries); err != nil {
			log.Error("Failed to insert audit entries", "error", err, "count", len(entries))
		}
	}(toInsert)
}

func drainQueue(buffer *[]domain.AuditLog) {
	for {
		select {
		case entry := <-entryQueue:
			*buffer = append(*buffer, entry)
		default:
			return
		}
	}
}
