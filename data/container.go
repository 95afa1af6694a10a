// Package data tracks the lifecycle of catalog reloads: whether one is
// running, when the last one succeeded and what it loaded. The catalog itself
// lives in the database.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/drugbase-api/entities"
	"github.com/giygas/drugbase-api/interfaces"
	"github.com/giygas/drugbase-api/logging"
)

// Compile-time check to ensure UpdateTracker implements UpdateStatus
var _ interfaces.UpdateStatus = (*UpdateTracker)(nil)

// UpdateTracker holds reload state behind atomics so the health endpoint can
// read it while a reload is running
type UpdateTracker struct {
	lastUpdated     atomic.Value // time.Time
	lastStats       atomic.Value // entities.LoadStats
	updating        atomic.Bool
	failures        atomic.Int64
	serverStartTime atomic.Value // time.Time
}

// NewUpdateTracker creates a tracker that has never seen a reload
func NewUpdateTracker() *UpdateTracker {
	ut := &UpdateTracker{}
	ut.lastUpdated.Store(time.Time{})
	ut.lastStats.Store(entities.LoadStats{})
	ut.serverStartTime.Store(time.Time{})
	return ut
}

// GetLastUpdated returns the time of the last successful reload
func (ut *UpdateTracker) GetLastUpdated() time.Time {
	if v := ut.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// GetLastStats returns what the last successful reload inserted
func (ut *UpdateTracker) GetLastStats() entities.LoadStats {
	if v := ut.lastStats.Load(); v != nil {
		if stats, ok := v.(entities.LoadStats); ok {
			return stats
		}
	}
	return entities.LoadStats{}
}

// ConsecutiveFailures returns the number of failed reloads since the last success
func (ut *UpdateTracker) ConsecutiveFailures() int64 {
	return ut.failures.Load()
}

// IsUpdating returns true if a reload is currently in progress
func (ut *UpdateTracker) IsUpdating() bool {
	return ut.updating.Load()
}

// SetServerStartTime sets the server start time
func (ut *UpdateTracker) SetServerStartTime(startTime time.Time) {
	ut.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (ut *UpdateTracker) GetServerStartTime() time.Time {
	if v := ut.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// RecordLoad stores the outcome of a successful reload
func (ut *UpdateTracker) RecordLoad(stats entities.LoadStats) {
	ut.lastStats.Store(stats)
	ut.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a reload.
// Returns true if the reload can proceed, false if another one is in progress
func (ut *UpdateTracker) BeginUpdate() bool {
	return ut.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a reload. A successful reload resets the
// failure counter and stamps the last update time.
func (ut *UpdateTracker) EndUpdate(success bool) {
	if success {
		ut.failures.Store(0)
		ut.lastUpdated.Store(time.Now())
	} else {
		ut.failures.Add(1)
	}
	ut.updating.Store(false)
}
