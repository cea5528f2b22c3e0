package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/evetools/indy/internal/types"
)

func job(status string, deps ...uuid.UUID) *types.ProjectJob {
	return &types.ProjectJob{ID: uuid.New(), Status: status, DependsOn: deps}
}

func index(jobs ...*types.ProjectJob) map[uuid.UUID]*types.ProjectJob {
	byID := make(map[uuid.UUID]*types.ProjectJob, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}
	return byID
}

func TestDepsSatisfiedNoDeps(t *testing.T) {
	j := job(types.JobWaitingForMaterials)
	if !depsSatisfied(j, index(j)) {
		t.Fatalf("job without dependencies should be satisfied")
	}
}

func TestDepsSatisfiedAllDone(t *testing.T) {
	child := job(types.JobDone)
	parent := job(types.JobWaitingForMaterials, child.ID)
	if !depsSatisfied(parent, index(child, parent)) {
		t.Fatalf("done dependency should satisfy")
	}
}

func TestDepsSatisfiedPendingDependencyBlocks(t *testing.T) {
	for _, status := range []string{
		types.JobWaitingForMaterials,
		types.JobReady,
		types.JobQueued,
		types.JobBuilding,
		types.JobCanceled,
	} {
		child := job(status)
		parent := job(types.JobWaitingForMaterials, child.ID)
		if depsSatisfied(parent, index(child, parent)) {
			t.Fatalf("dependency in %s should block", status)
		}
	}
}

func TestDepsSatisfiedDanglingEdgeIgnored(t *testing.T) {
	parent := job(types.JobWaitingForMaterials, uuid.New())
	if !depsSatisfied(parent, index(parent)) {
		t.Fatalf("dangling dependency edge should not block")
	}
}

func TestDepsSatisfiedMixed(t *testing.T) {
	done := job(types.JobDone)
	building := job(types.JobBuilding)
	parent := job(types.JobReady, done.ID, building.ID)
	if depsSatisfied(parent, index(done, building, parent)) {
		t.Fatalf("one pending dependency should block")
	}
}

func TestProjectStatusTransitions(t *testing.T) {
	allowed := func(from, to string) bool {
		for _, next := range validStatusTransitions[from] {
			if next == to {
				return true
			}
		}
		return false
	}

	cases := []struct {
		from, to string
		want     bool
	}{
		{types.ProjectPreparing, types.ProjectInProgress, true},
		{types.ProjectPreparing, types.ProjectAborted, true},
		{types.ProjectPreparing, types.ProjectDone, false},
		{types.ProjectInProgress, types.ProjectPaused, true},
		{types.ProjectInProgress, types.ProjectDone, true},
		{types.ProjectInProgress, types.ProjectAborted, true},
		{types.ProjectPaused, types.ProjectInProgress, true},
		{types.ProjectPaused, types.ProjectDone, false},
		{types.ProjectDone, types.ProjectInProgress, false},
		{types.ProjectAborted, types.ProjectPreparing, false},
	}
	for _, tc := range cases {
		if got := allowed(tc.from, tc.to); got != tc.want {
			t.Fatalf("transition %s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
