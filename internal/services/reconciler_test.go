package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/repos"
	"github.com/evetools/indy/internal/types"
)

type fakeProjects struct {
	repos.ProjectRepo
	rows map[uuid.UUID]*types.Project
}

func (f *fakeProjects) GetByIDForOwner(ctx context.Context, tx *gorm.DB, id uuid.UUID, ownerID int64) (*types.Project, error) {
	p, ok := f.rows[id]
	if !ok || p.OwnerID != ownerID {
		return nil, apperror.NotFound("project")
	}
	return p, nil
}

type fakeProjectJobs struct {
	repos.ProjectJobRepo
	rows    map[uuid.UUID]*types.ProjectJob
	deleted []uuid.UUID
}

func (f *fakeProjectJobs) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ProjectJob, error) {
	j, ok := f.rows[id]
	if !ok {
		return nil, apperror.NotFound("project job")
	}
	return j, nil
}

func (f *fakeProjectJobs) GetByExternalJobID(ctx context.Context, tx *gorm.DB, jobID int64) (*types.ProjectJob, error) {
	for _, j := range f.rows {
		if j.JobID != nil && *j.JobID == jobID {
			return j, nil
		}
	}
	return nil, nil
}

func (f *fakeProjectJobs) Bind(ctx context.Context, tx *gorm.DB, id uuid.UUID, jobID int64, cost *float64) error {
	for _, j := range f.rows {
		if j.ID != id && j.JobID != nil && *j.JobID == jobID {
			return errors.Join(apperror.ErrAlreadyAssigned, errors.New("job id taken"))
		}
	}
	j, ok := f.rows[id]
	if !ok || (j.Status != types.JobWaitingForMaterials && j.Status != types.JobReady) {
		return apperror.NotFound("project job not bindable")
	}
	j.JobID = &jobID
	j.Cost = cost
	j.Status = types.JobQueued
	return nil
}

func (f *fakeProjectJobs) Unbind(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	j, ok := f.rows[id]
	if !ok {
		return apperror.NotFound("project job")
	}
	j.JobID = nil
	j.Cost = nil
	j.Status = types.JobWaitingForMaterials
	return nil
}

func (f *fakeProjectJobs) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if _, ok := f.rows[id]; !ok {
		return apperror.NotFound("project job")
	}
	delete(f.rows, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeDetected struct {
	repos.IndustryJobRepo
	rows    map[int64]*types.IndustryJob
	ignored []int64
}

func (f *fakeDetected) GetByJobID(ctx context.Context, tx *gorm.DB, jobID int64) (*types.IndustryJob, error) {
	return f.rows[jobID], nil
}

func (f *fakeDetected) MarkIgnored(ctx context.Context, tx *gorm.DB, jobID int64) error {
	f.ignored = append(f.ignored, jobID)
	return nil
}

type reconcileFixture struct {
	svc      *ReconcileService
	projects *fakeProjects
	jobs     *fakeProjectJobs
	detected *fakeDetected

	ownerID   int64
	projectID uuid.UUID
}

func newReconcileFixture() *reconcileFixture {
	projectID := uuid.New()
	f := &reconcileFixture{
		projects: &fakeProjects{rows: map[uuid.UUID]*types.Project{
			projectID: {ID: projectID, OwnerID: 90, Status: types.ProjectInProgress},
		}},
		jobs:      &fakeProjectJobs{rows: map[uuid.UUID]*types.ProjectJob{}},
		detected:  &fakeDetected{rows: map[int64]*types.IndustryJob{}},
		ownerID:   90,
		projectID: projectID,
	}
	f.svc = NewReconcileService(logger.Nop(), nil, f.projects, f.jobs, f.detected)
	return f
}

func (f *reconcileFixture) addJob(status string, jobID *int64, cost *float64) *types.ProjectJob {
	j := &types.ProjectJob{
		ID:        uuid.New(),
		ProjectID: f.projectID,
		TypeID:    603,
		Runs:      10,
		Status:    status,
		JobID:     jobID,
		Cost:      cost,
	}
	f.jobs.rows[j.ID] = j
	return j
}

func ptrInt64(v int64) *int64     { return &v }
func ptrFloat(v float64) *float64 { return &v }

func TestReplaceMovesBindingToNamedJob(t *testing.T) {
	f := newReconcileFixture()
	first := f.addJob(types.JobQueued, ptrInt64(42), ptrFloat(1_000_000))
	second := f.addJob(types.JobWaitingForMaterials, nil, nil)
	f.detected.rows[42] = &types.IndustryJob{JobID: 42, OwnerID: f.ownerID, Cost: 7_550_000}

	if err := f.svc.Replace(context.Background(), f.ownerID, 42, second.ID); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	if first.JobID != nil {
		t.Fatalf("previous holder still bound to %d", *first.JobID)
	}
	if first.Status != types.JobWaitingForMaterials || first.Cost != nil {
		t.Fatalf("previous holder not reverted: status %s cost %v", first.Status, first.Cost)
	}
	if second.JobID == nil || *second.JobID != 42 {
		t.Fatalf("new job not bound, job_id %v", second.JobID)
	}
	if second.Status != types.JobQueued {
		t.Fatalf("new job status %s, want %s", second.Status, types.JobQueued)
	}
	if second.Cost == nil || *second.Cost != 7_550_000 {
		t.Fatalf("detected cost not carried over, got %v", second.Cost)
	}
}

func TestReplaceSameJobIsNoOp(t *testing.T) {
	f := newReconcileFixture()
	holder := f.addJob(types.JobQueued, ptrInt64(42), ptrFloat(1_000_000))

	if err := f.svc.Replace(context.Background(), f.ownerID, 42, holder.ID); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if holder.JobID == nil || *holder.JobID != 42 || holder.Status != types.JobQueued {
		t.Fatalf("holder disturbed: job_id %v status %s", holder.JobID, holder.Status)
	}
}

func TestReplaceUnknownExternalJob(t *testing.T) {
	f := newReconcileFixture()
	target := f.addJob(types.JobWaitingForMaterials, nil, nil)

	err := f.svc.Replace(context.Background(), f.ownerID, 42, target.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("want not-found for unbound external id, got %v", err)
	}
}

func TestReplaceForeignOwner(t *testing.T) {
	f := newReconcileFixture()
	target := f.addJob(types.JobWaitingForMaterials, nil, nil)
	other := uuid.New()
	f.projects.rows[other] = &types.Project{ID: other, OwnerID: 91, Status: types.ProjectInProgress}
	foreign := &types.ProjectJob{ID: uuid.New(), ProjectID: other, Status: types.JobQueued, JobID: ptrInt64(42)}
	f.jobs.rows[foreign.ID] = foreign

	err := f.svc.Replace(context.Background(), f.ownerID, 42, target.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("want not-found across owners, got %v", err)
	}
	if foreign.JobID == nil {
		t.Fatal("foreign binding was touched")
	}
}

func TestUnassignDeleteFromSourceRemovesProjectJob(t *testing.T) {
	f := newReconcileFixture()
	job := f.addJob(types.JobQueued, ptrInt64(42), ptrFloat(1_000_000))
	f.detected.rows[42] = &types.IndustryJob{JobID: 42, OwnerID: f.ownerID}

	err := f.svc.Unassign(context.Background(), f.ownerID, job.ID, true, false)
	if err != nil {
		t.Fatalf("Unassign: %v", err)
	}
	if _, ok := f.jobs.rows[job.ID]; ok {
		t.Fatal("project job row survived delete_from_source")
	}
	if len(f.jobs.deleted) != 1 || f.jobs.deleted[0] != job.ID {
		t.Fatalf("deleted rows %v, want [%s]", f.jobs.deleted, job.ID)
	}
	if len(f.detected.ignored) != 0 {
		t.Fatalf("detected job ignored without the flag: %v", f.detected.ignored)
	}
}

func TestUnassignIgnoreRevertsAndHidesDetected(t *testing.T) {
	f := newReconcileFixture()
	job := f.addJob(types.JobQueued, ptrInt64(42), ptrFloat(1_000_000))
	f.detected.rows[42] = &types.IndustryJob{JobID: 42, OwnerID: f.ownerID}

	err := f.svc.Unassign(context.Background(), f.ownerID, job.ID, false, true)
	if err != nil {
		t.Fatalf("Unassign: %v", err)
	}
	if job.JobID != nil || job.Status != types.JobWaitingForMaterials {
		t.Fatalf("job not reverted: job_id %v status %s", job.JobID, job.Status)
	}
	if len(f.detected.ignored) != 1 || f.detected.ignored[0] != 42 {
		t.Fatalf("ignored ids %v, want [42]", f.detected.ignored)
	}
}

func TestUnassignUnboundJob(t *testing.T) {
	f := newReconcileFixture()
	job := f.addJob(types.JobWaitingForMaterials, nil, nil)

	err := f.svc.Unassign(context.Background(), f.ownerID, job.ID, false, false)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("want validation error for unbound job, got %v", err)
	}
}
