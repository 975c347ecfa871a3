package logger

import (
	"sync"
	"time"
)

// ProgressTracker tracks progress of long-running operations such as a
// full GL pivot import or a whole-year report assembly.
type ProgressTracker struct {
	logger      Logger
	operation   string
	total       int64
	current     int64
	startTime   time.Time
	lastLogTime time.Time
	logInterval time.Duration
	mutex       sync.Mutex
}

// NewProgressTracker creates a tracker that logs progress at most once
// per interval. A zero interval defaults to five seconds; a zero total
// logs counts without percentages.
func NewProgressTracker(operation string, total int64, interval time.Duration) *ProgressTracker {
	if interval == 0 {
		interval = 5 * time.Second
	}

	tracker := &ProgressTracker{
		logger:      GetGlobalLogger().WithComponent("progress"),
		operation:   operation,
		total:       total,
		startTime:   time.Now(),
		lastLogTime: time.Now(),
		logInterval: interval,
	}

	tracker.logger.WithFields(Fields{
		"operation": operation,
		"total":     total,
	}).Info("Starting operation")

	return tracker
}

// Add advances the tracker by n processed items.
func (pt *ProgressTracker) Add(n int64) {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	pt.current += n
	if time.Since(pt.lastLogTime) < pt.logInterval {
		return
	}
	pt.lastLogTime = time.Now()

	fields := Fields{
		"operation": pt.operation,
		"processed": pt.current,
		"elapsed":   time.Since(pt.startTime).Round(time.Millisecond).String(),
	}
	if pt.total > 0 {
		fields["total"] = pt.total
		fields["percent"] = float64(pt.current) * 100 / float64(pt.total)
	}
	pt.logger.WithFields(fields).Info("Operation in progress")
}

// Done logs the final count and duration for the operation.
func (pt *ProgressTracker) Done() {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	pt.logger.WithFields(Fields{
		"operation": pt.operation,
		"processed": pt.current,
		"duration":  time.Since(pt.startTime).Round(time.Millisecond).String(),
	}).Info("Operation complete")
}
