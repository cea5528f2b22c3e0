package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/repos"
	"github.com/evetools/indy/internal/types"
)

// Candidate pairs one detected game job with the project jobs it could be
// bound to.
type Candidate struct {
	Detected types.IndustryJob  `json:"detected"`
	Matches  []types.ProjectJob `json:"matches"`
}

// ReconcileService binds detected in-game industry jobs to planned project
// jobs and keeps the two views consistent.
type ReconcileService struct {
	log      *logger.Logger
	db       *gorm.DB
	projects repos.ProjectRepo
	jobs     repos.ProjectJobRepo
	detected repos.IndustryJobRepo
}

func NewReconcileService(baseLog *logger.Logger, db *gorm.DB, projects repos.ProjectRepo, jobs repos.ProjectJobRepo, detected repos.IndustryJobRepo) *ReconcileService {
	return &ReconcileService{
		log:      baseLog.With("service", "ReconcileService"),
		db:       db,
		projects: projects,
		jobs:     jobs,
		detected: detected,
	}
}

// transact runs fn inside one transaction when a database handle is
// configured; unit tests inject repo fakes and no handle.
func (s *ReconcileService) transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.db == nil {
		return fn(nil)
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// Candidates lists unbound detected jobs for the owner together with the
// pending project jobs matching on product type and run count.
func (s *ReconcileService) Candidates(ctx context.Context, ownerID int64) ([]Candidate, error) {
	unassigned, err := s.detected.ListUnassigned(ctx, nil, ownerID)
	if err != nil {
		return nil, err
	}
	if len(unassigned) == 0 {
		return nil, nil
	}

	projects, err := s.projects.ListByOwner(ctx, nil, ownerID)
	if err != nil {
		return nil, err
	}
	var pending []types.ProjectJob
	for _, p := range projects {
		if p.Status == types.ProjectDone || p.Status == types.ProjectAborted {
			continue
		}
		jobs, err := s.jobs.ListByProject(ctx, nil, p.ID)
		if err != nil {
			return nil, err
		}
		for _, j := range jobs {
			if j.Status == types.JobWaitingForMaterials || j.Status == types.JobReady {
				pending = append(pending, *j)
			}
		}
	}

	out := make([]Candidate, 0, len(unassigned))
	for _, det := range unassigned {
		c := Candidate{Detected: det}
		for _, j := range pending {
			if j.TypeID == det.TypeID && j.Runs == det.Runs {
				c.Matches = append(c.Matches, j)
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// Assign binds a detected job to a project job, carrying the real install
// cost over. Double-binding surfaces as AlreadyAssigned.
func (s *ReconcileService) Assign(ctx context.Context, ownerID int64, projectJobID uuid.UUID, externalJobID int64) error {
	return s.transact(ctx, func(txx *gorm.DB) error {
		job, err := s.jobs.GetByID(ctx, txx, projectJobID)
		if err != nil {
			return err
		}
		if _, err := s.projects.GetByIDForOwner(ctx, txx, job.ProjectID, ownerID); err != nil {
			return err
		}
		det, err := s.detected.GetByJobID(ctx, txx, externalJobID)
		if err != nil {
			return err
		}
		var cost *float64
		if det != nil {
			if det.OwnerID != ownerID {
				return apperror.NotFound("industry job")
			}
			cost = &det.Cost
		}
		return s.jobs.Bind(ctx, txx, projectJobID, externalJobID, cost)
	})
}

// Unassign releases the external binding of a project job. With
// deleteFromSource the project-job row itself is removed instead of being
// reverted to waiting; with ignoreDetected the freed game job is marked
// ignored so the candidate list stops suggesting it.
func (s *ReconcileService) Unassign(ctx context.Context, ownerID int64, projectJobID uuid.UUID, deleteFromSource, ignoreDetected bool) error {
	return s.transact(ctx, func(txx *gorm.DB) error {
		job, err := s.jobs.GetByID(ctx, txx, projectJobID)
		if err != nil {
			return err
		}
		if _, err := s.projects.GetByIDForOwner(ctx, txx, job.ProjectID, ownerID); err != nil {
			return err
		}
		if job.JobID == nil {
			return apperror.Validation("project job %s has no bound game job", projectJobID)
		}
		externalID := *job.JobID
		if deleteFromSource {
			if err := s.jobs.Delete(ctx, txx, projectJobID); err != nil {
				return err
			}
		} else if err := s.jobs.Unbind(ctx, txx, projectJobID); err != nil {
			return err
		}
		if ignoreDetected {
			return s.detected.MarkIgnored(ctx, txx, externalID)
		}
		return nil
	})
}

// Replace atomically moves a bound game job onto a different project job:
// the current holder of the external id is reverted and the named project
// job takes the binding, cost carried over from the detected row.
func (s *ReconcileService) Replace(ctx context.Context, ownerID int64, externalJobID int64, newProjectJobID uuid.UUID) error {
	return s.transact(ctx, func(txx *gorm.DB) error {
		holder, err := s.jobs.GetByExternalJobID(ctx, txx, externalJobID)
		if err != nil {
			return err
		}
		if holder == nil {
			return apperror.NotFound("bound project job")
		}
		if _, err := s.projects.GetByIDForOwner(ctx, txx, holder.ProjectID, ownerID); err != nil {
			return err
		}
		if holder.ID == newProjectJobID {
			return nil
		}
		next, err := s.jobs.GetByID(ctx, txx, newProjectJobID)
		if err != nil {
			return err
		}
		if _, err := s.projects.GetByIDForOwner(ctx, txx, next.ProjectID, ownerID); err != nil {
			return err
		}
		if err := s.jobs.Unbind(ctx, txx, holder.ID); err != nil {
			return err
		}
		det, err := s.detected.GetByJobID(ctx, txx, externalJobID)
		if err != nil {
			return err
		}
		var cost *float64
		if det != nil {
			if det.OwnerID != ownerID {
				return apperror.NotFound("industry job")
			}
			cost = &det.Cost
		}
		return s.jobs.Bind(ctx, txx, newProjectJobID, externalJobID, cost)
	})
}

// MarkDone moves a queued or building job to done once its game job
// delivered.
func (s *ReconcileService) MarkDone(ctx context.Context, ownerID int64, projectJobID uuid.UUID) error {
	job, err := s.jobs.GetByID(ctx, nil, projectJobID)
	if err != nil {
		return err
	}
	if _, err := s.projects.GetByIDForOwner(ctx, nil, job.ProjectID, ownerID); err != nil {
		return err
	}
	if job.Status != types.JobQueued && job.Status != types.JobBuilding {
		return apperror.Validation("job %s is %s, not running", projectJobID, job.Status)
	}
	return s.jobs.UpdateFields(ctx, nil, projectJobID, map[string]interface{}{
		"status": types.JobDone,
	})
}
