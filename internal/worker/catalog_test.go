package worker

import (
	"testing"
	"time"

	"github.com/evetools/indy/internal/types"
)

func TestNextWaitCadence(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	cases := []struct {
		kind string
		want time.Duration
	}{
		{types.TaskSync, 5 * time.Minute},
		{types.TaskLatestNpc, 5 * time.Minute},
		{types.TaskLatestPlayer, 5 * time.Minute},
		{types.TaskLatestRegion, 5 * time.Minute},
		{types.TaskPublicContracts, 30 * time.Minute},
		{types.TaskCharacterOrders, 20 * time.Minute},
		{types.TaskCorporationOrders, 20 * time.Minute},
		{types.TaskPrices, 60 * time.Minute},
		{types.TaskSystemIndex, 60 * time.Minute},
		{types.TaskCharacterAssets, 60 * time.Minute},
		{types.TaskCorporationAssets, 60 * time.Minute},
		{types.TaskCharacterBlueprints, 60 * time.Minute},
		{types.TaskCorporationBlueprints, 60 * time.Minute},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			got := nextWait(tc.kind, now)
			if got == nil {
				t.Fatalf("nextWait(%q) = nil, want %v", tc.kind, tc.want)
			}
			if !got.Equal(now.Add(tc.want)) {
				t.Fatalf("nextWait(%q) = %v, want %v", tc.kind, got, now.Add(tc.want))
			}
		})
	}
}

func TestNextWaitOneShotKinds(t *testing.T) {
	now := time.Now()
	if got := nextWait(types.TaskPublicContractItems, now); got != nil {
		t.Fatalf("one-shot kind rescheduled to %v", got)
	}
	if got := nextWait("bogus", now); got != nil {
		t.Fatalf("unknown kind rescheduled to %v", got)
	}
}

func TestNextWaitCleanupAimsAtDowntime(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	got := nextWait(types.TaskCleanup, now)
	if got == nil {
		t.Fatalf("cleanup not rescheduled")
	}
	want := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("cleanup scheduled for %v, want %v", got, want)
	}
}

func TestNextDowntime(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			"before window",
			time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC),
			time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
		},
		{
			"at window start",
			time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
		},
		{
			"after window",
			time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC),
			time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
		},
		{
			"non utc clock",
			time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("east", 3*3600)),
			time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextDowntime(tc.now); !got.Equal(tc.want) {
				t.Fatalf("nextDowntime(%v) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}
