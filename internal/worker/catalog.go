package worker

import (
	"time"

	"github.com/evetools/indy/internal/types"
)

// rescheduleAfter is the cadence of each periodic task kind. Kinds absent
// from the table are one-shot and never rescheduled.
var rescheduleAfter = map[string]time.Duration{
	types.TaskSync:                  5 * time.Minute,
	types.TaskLatestNpc:             5 * time.Minute,
	types.TaskLatestPlayer:          5 * time.Minute,
	types.TaskLatestRegion:          5 * time.Minute,
	types.TaskPublicContracts:       30 * time.Minute,
	types.TaskCharacterOrders:       20 * time.Minute,
	types.TaskCorporationOrders:     20 * time.Minute,
	types.TaskPrices:                60 * time.Minute,
	types.TaskSystemIndex:           60 * time.Minute,
	types.TaskCharacterAssets:       60 * time.Minute,
	types.TaskCorporationAssets:     60 * time.Minute,
	types.TaskCharacterBlueprints:   60 * time.Minute,
	types.TaskCorporationBlueprints: 60 * time.Minute,
}

// nextWait returns when a fresh row of the given kind should next run, or
// nil for one-shot kinds.
func nextWait(kind string, now time.Time) *time.Time {
	if kind == types.TaskCleanup {
		t := nextDowntime(now)
		return &t
	}
	d, ok := rescheduleAfter[kind]
	if !ok {
		return nil
	}
	t := now.Add(d)
	return &t
}

// nextDowntime returns the next daily 11:00 UTC maintenance window start.
func nextDowntime(now time.Time) time.Time {
	utc := now.UTC()
	dt := time.Date(utc.Year(), utc.Month(), utc.Day(), 11, 0, 0, 0, time.UTC)
	if !dt.After(utc) {
		dt = dt.Add(24 * time.Hour)
	}
	return dt
}
