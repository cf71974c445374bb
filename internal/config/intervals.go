package config

import (
	"sync"
	"sync/atomic"
	"time"
)

const defaultExportRefreshInterval = 5 * time.Minute

var (
	exportRefreshInterval   atomic.Value
	exportIntervalListeners []chan time.Duration
	listenersMu             sync.Mutex
)

func init() {
	exportRefreshInterval.Store(defaultExportRefreshInterval)
}

// applyIntervals recomputes derived durations after a settings swap and
// notifies any listening loops. Callers must hold configMu.
func applyIntervals() {
	setExportRefreshInterval(calculateExportRefreshInterval(GetConfig()))
}

// TimerDuration converts a settings Timer into a duration with a one second
// floor so a zeroed timer can never spin a loop.
func TimerDuration(timer Timer) time.Duration {
	total := time.Duration(timer.Days)*24*time.Hour +
		time.Duration(timer.Hours)*time.Hour +
		time.Duration(timer.Minutes)*time.Minute +
		time.Duration(timer.Seconds)*time.Second

	if total < time.Second {
		return time.Second
	}
	return total
}

func calculateExportRefreshInterval(cfg Config) time.Duration {
	timer := cfg.System.BlacklistUpdateTimer
	if timer.Days == 0 && timer.Hours == 0 && timer.Minutes == 0 && timer.Seconds == 0 {
		return defaultExportRefreshInterval
	}
	return TimerDuration(timer)
}

// GetExportRefreshInterval returns the current export regeneration period.
func GetExportRefreshInterval() time.Duration {
	return exportRefreshInterval.Load().(time.Duration)
}

// ExportIntervalUpdates registers a listener that receives the current
// interval immediately and every subsequent change.
func ExportIntervalUpdates() <-chan time.Duration {
	ch := make(chan time.Duration, 1)
	listenersMu.Lock()
	exportIntervalListeners = append(exportIntervalListeners, ch)
	listenersMu.Unlock()

	ch <- GetExportRefreshInterval()
	return ch
}

func setExportRefreshInterval(interval time.Duration) {
	if interval <= 0 {
		interval = defaultExportRefreshInterval
	}

	if GetExportRefreshInterval() == interval {
		return
	}

	exportRefreshInterval.Store(interval)

	listenersMu.Lock()
	defer listenersMu.Unlock()
	for _, ch := range exportIntervalListeners {
		select {
		case ch <- interval:
		default:
		}
	}
}
