// Package scheduler reloads the catalog on a schedule and warns when it goes
// stale. Reloads go through an injected Refresher and are guarded against
// overlapping runs by the update tracker.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/giygas/drugbase-api/entities"
	"github.com/giygas/drugbase-api/interfaces"
	"github.com/giygas/drugbase-api/logging"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

const (
	// StaleAfter is how old the last successful reload may get before the
	// monitor starts warning
	StaleAfter = 25 * time.Hour

	refreshTimeout = 10 * time.Minute
)

// Tracker is the update state the scheduler drives
type Tracker interface {
	interfaces.UpdateStatus
	RecordLoad(stats entities.LoadStats)
}

// Scheduler handles catalog reloads and staleness monitoring
type Scheduler struct {
	tracker   Tracker
	refresher interfaces.Refresher
	schedule  string
	scheduler *gocron.Scheduler
	updateJob *gocron.Job
	nowFunc   func() time.Time
}

// NewScheduler creates a scheduler. schedule is a gocron At() expression
// such as "06:00;18:00"; an empty schedule only performs the initial load.
func NewScheduler(tracker Tracker, refresher interfaces.Refresher, schedule string) *Scheduler {
	return &Scheduler{
		tracker:   tracker,
		refresher: refresher,
		schedule:  schedule,
		scheduler: gocron.NewScheduler(time.Local),
		nowFunc:   time.Now,
	}
}

// Start performs the initial load, then schedules reloads and the hourly
// staleness monitor
func (s *Scheduler) Start() error {
	if err := s.updateData(); err != nil {
		logging.Error("Failed to perform initial data load", "error", err)
		return fmt.Errorf("initial data load failed: %w", err)
	}

	if s.schedule != "" {
		job, err := s.scheduler.Every(1).Days().At(s.schedule).Do(func() {
			if err := s.updateData(); err != nil {
				logging.Error("Failed to update data", "error", err)
			}
		})
		if err != nil {
			logging.Error("Failed to schedule updates", "schedule", s.schedule, "error", err)
			return fmt.Errorf("failed to schedule updates: %w", err)
		}
		s.updateJob = job
	}

	if _, err := s.scheduler.Every(1).Hour().WaitForSchedule().Do(s.checkStaleness); err != nil {
		return fmt.Errorf("failed to schedule staleness monitor: %w", err)
	}

	s.scheduler.StartAsync()
	logging.Info("Scheduler started", "schedule", s.schedule)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// NextRun returns when the next reload is due, zero when none is scheduled
func (s *Scheduler) NextRun() time.Time {
	if s.updateJob == nil {
		return time.Time{}
	}
	return s.updateJob.NextRun()
}

// updateData runs one reload unless another one is in progress
func (s *Scheduler) updateData() error {
	if !s.tracker.BeginUpdate() {
		logging.Info("Update already in progress, skipping...")
		return nil
	}

	success := false
	defer func() { s.tracker.EndUpdate(success) }()

	logging.Info(fmt.Sprintf("Starting database update at: %s", s.nowFunc().Format(time.RFC3339)))
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	stats, err := s.refresher.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	s.tracker.RecordLoad(stats)
	success = true
	logging.Info("Database update completed", "duration", time.Since(start).String(), "inserted", stats.Total())
	return nil
}

// checkStaleness warns when the last successful reload is too old. It
// reports whether the catalog is stale.
func (s *Scheduler) checkStaleness() bool {
	lastUpdate := s.tracker.GetLastUpdated()
	if lastUpdate.IsZero() {
		logging.Warn("Data has never been updated successfully")
		return true
	}
	if age := s.nowFunc().Sub(lastUpdate); age > StaleAfter {
		logging.Warn("Data hasn't been updated in over 25 hours", "last_update", lastUpdate, "age", age.Round(time.Minute).String())
		return true
	}
	return false
}
