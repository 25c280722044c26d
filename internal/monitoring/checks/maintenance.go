package checks

import (
	"context"
	"strings"
	"time"

	"github.com/charlesng35/estatehub/internal/monitoring"
)

const defaultMaintenanceMaxAge = 26 * time.Hour

// Maintenance reports down while a job keeps failing and degraded when a job has
// not run within maxAge. Jobs that never ran yet are reported but stay up.
func Maintenance(tracker *monitoring.JobTracker, maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}
	return monitoring.NewCheck("maintenance", func(context.Context) monitoring.ProbeResult {
		if tracker == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "maintenance disabled"}
		}

		now := time.Now()
		status := monitoring.StatusUp
		var notes []string
		for _, job := range tracker.Snapshot() {
			switch {
			case job.TotalRuns == 0:
				notes = append(notes, job.Job+": pending first run")
			case job.ConsecutiveFailures > 0:
				status = monitoring.StatusDown
				notes = append(notes, job.Job+": "+job.LastError)
			case now.Sub(job.LastRunAt) > maxAge:
				if status != monitoring.StatusDown {
					status = monitoring.StatusDegraded
				}
				notes = append(notes, job.Job+": stale since "+job.LastRunAt.UTC().Format(time.RFC3339))
			}
		}
		return monitoring.ProbeResult{Status: status, Details: strings.Join(notes, "; ")}
	})
}
