// Package health provides health checking functionality for the drugbase API.
package health

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/giygas/drugbase-api/interfaces"
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	stats    interfaces.StatsProvider
	updates  interfaces.UpdateStatus
	schedule []time.Duration // offsets from midnight, ascending
	nowFunc  func() time.Time
}

// NewHealthChecker creates a new health checker with injected dependencies.
// updates may be nil and schedule empty when the catalog is not reloaded
// periodically; data age is then not part of the verdict.
func NewHealthChecker(stats interfaces.StatsProvider, updates interfaces.UpdateStatus, schedule string) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		stats:    stats,
		updates:  updates,
		schedule: parseSchedule(schedule),
		nowFunc:  time.Now,
	}
}

// parseSchedule reads "HH:MM;HH:MM" and drops entries that do not parse
func parseSchedule(schedule string) []time.Duration {
	var offsets []time.Duration
	for _, at := range strings.Split(schedule, ";") {
		t, err := time.Parse("15:04", strings.TrimSpace(at))
		if err != nil {
			continue
		}
		offsets = append(offsets, time.Duration(t.Hour())*time.Hour+time.Duration(t.Minute())*time.Minute)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets
}

// HealthCheck returns HTTP-specific health data with stricter thresholds
// Used by /health HTTP endpoint
func (h *HealthCheckerImpl) HealthCheck(ctx context.Context) (status string, data map[string]any, httpStatus int) {
	data = map[string]any{}

	if err := h.stats.Ping(ctx); err != nil {
		data["error"] = "database unreachable"
		return "unhealthy", data, http.StatusServiceUnavailable
	}

	counts, err := h.stats.Counts(ctx)
	if err != nil {
		data["error"] = "could not count catalog rows"
		return "unhealthy", data, http.StatusServiceUnavailable
	}

	data["drugs"] = counts.Drugs
	data["generics"] = counts.Generics
	data["diseases"] = counts.Diseases
	data["manufacturers"] = counts.Manufacturers
	data["treatments"] = counts.Treatments

	status, httpStatus = "healthy", http.StatusOK
	if counts.Drugs == 0 || counts.Treatments == 0 {
		status, httpStatus = "unhealthy", http.StatusServiceUnavailable
	}

	if h.updates == nil || len(h.schedule) == 0 {
		return status, data, httpStatus
	}

	lastUpdate := h.updates.GetLastUpdated()
	isUpdating := h.updates.IsUpdating()
	dataAge := h.nowFunc().Sub(lastUpdate)

	data["last_update"] = lastUpdate.Format(time.RFC3339)
	data["data_age_hours"] = math.Round(dataAge.Hours()*10) / 10
	data["is_updating"] = isUpdating
	data["next_update"] = h.CalculateNextUpdate().Format(time.RFC3339)

	if status != "healthy" {
		return status, data, httpStatus
	}

	// Determine health status and HTTP code using stricter thresholds
	switch {
	case dataAge > 48*time.Hour:
		status, httpStatus = "unhealthy", http.StatusServiceUnavailable
	case dataAge > 24*time.Hour:
		status, httpStatus = "degraded", http.StatusServiceUnavailable
	case isUpdating && dataAge > 6*time.Hour:
		status, httpStatus = "degraded", http.StatusServiceUnavailable
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled reload time, or the zero
// time when no reload is scheduled
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	if len(h.schedule) == 0 {
		return time.Time{}
	}

	now := h.nowFunc()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, offset := range h.schedule {
		if at := midnight.Add(offset); now.Before(at) {
			return at
		}
	}

	// After the last run of the day, next update is the first run tomorrow
	return midnight.AddDate(0, 0, 1).Add(h.schedule[0])
}
