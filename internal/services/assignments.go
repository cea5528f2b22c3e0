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

// AssignmentService groups startable jobs, possibly across projects, into
// named batches the user works through at one sitting.
type AssignmentService struct {
	log         *logger.Logger
	db          *gorm.DB
	assignments repos.AssignmentRepo
	projects    repos.ProjectRepo
	jobs        repos.ProjectJobRepo
}

func NewAssignmentService(baseLog *logger.Logger, db *gorm.DB, assignments repos.AssignmentRepo, projects repos.ProjectRepo, jobs repos.ProjectJobRepo) *AssignmentService {
	return &AssignmentService{
		log:         baseLog.With("service", "AssignmentService"),
		db:          db,
		assignments: assignments,
		projects:    projects,
		jobs:        jobs,
	}
}

// Create bundles the given project jobs into a new assignment. Every job
// must belong to a project of the caller.
func (s *AssignmentService) Create(ctx context.Context, ownerID int64, name string, projectJobIDs []uuid.UUID) (*types.Assignment, error) {
	if name == "" {
		return nil, apperror.Validation("assignment name required")
	}
	if len(projectJobIDs) == 0 {
		return nil, apperror.Validation("assignment needs at least one job")
	}

	a := &types.Assignment{ID: uuid.New(), OwnerID: ownerID, Name: name}
	err := s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		for _, jobID := range projectJobIDs {
			job, err := s.jobs.GetByID(ctx, txx, jobID)
			if err != nil {
				return err
			}
			if _, err := s.projects.GetByIDForOwner(ctx, txx, job.ProjectID, ownerID); err != nil {
				return err
			}
		}
		if err := s.assignments.Create(ctx, txx, a); err != nil {
			return err
		}
		return s.assignments.AddJobs(ctx, txx, a.ID, projectJobIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.assignments.Get(ctx, nil, ownerID, a.ID)
}

func (s *AssignmentService) Get(ctx context.Context, ownerID int64, id uuid.UUID) (*types.Assignment, error) {
	return s.assignments.Get(ctx, nil, ownerID, id)
}

func (s *AssignmentService) List(ctx context.Context, ownerID int64) ([]types.Assignment, error) {
	return s.assignments.ListByOwner(ctx, nil, ownerID)
}

// MarkStarted flags one member job as started in-game.
func (s *AssignmentService) MarkStarted(ctx context.Context, ownerID int64, id uuid.UUID, projectJobID uuid.UUID) error {
	if _, err := s.assignments.Get(ctx, nil, ownerID, id); err != nil {
		return err
	}
	return s.assignments.MarkStarted(ctx, nil, id, projectJobID)
}

func (s *AssignmentService) Delete(ctx context.Context, ownerID int64, id uuid.UUID) error {
	return s.assignments.Delete(ctx, nil, ownerID, id)
}
