package services

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/repos"
	"github.com/evetools/indy/internal/sde"
	"github.com/evetools/indy/internal/types"
)

// StartableJob is one job whose dependencies are all satisfied.
type StartableJob struct {
	Job        types.ProjectJob `json:"job"`
	Name       string           `json:"name"`
	CategoryID int32            `json:"category_id"`
	GroupID    int32            `json:"group_id"`
}

// StartableService decides which project jobs can be started right now.
type StartableService struct {
	log      *logger.Logger
	static   *sde.Store
	projects repos.ProjectRepo
	jobs     repos.ProjectJobRepo
}

func NewStartableService(baseLog *logger.Logger, static *sde.Store, projects repos.ProjectRepo, jobs repos.ProjectJobRepo) *StartableService {
	return &StartableService{
		log:      baseLog.With("service", "StartableService"),
		static:   static,
		projects: projects,
		jobs:     jobs,
	}
}

// Evaluate returns the startable jobs of a project ordered by category,
// group then item name. A job is startable when it is still pending and
// every dependency that still exists is done; dangling edges left behind by
// job deletion are ignored rather than blocking forever.
func (s *StartableService) Evaluate(ctx context.Context, ownerID int64, projectID uuid.UUID) ([]StartableJob, error) {
	if _, err := s.projects.GetByIDForOwner(ctx, nil, projectID, ownerID); err != nil {
		return nil, err
	}
	jobs, err := s.jobs.ListByProject(ctx, nil, projectID)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*types.ProjectJob, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}

	var out []StartableJob
	for _, j := range jobs {
		if j.Status != types.JobWaitingForMaterials && j.Status != types.JobReady {
			continue
		}
		if !depsSatisfied(j, byID) {
			continue
		}
		entry := StartableJob{Job: *j}
		if item, ok := s.static.Item(j.TypeID); ok {
			entry.Name = item.Name
			entry.CategoryID = item.CategoryID
			entry.GroupID = item.GroupID
		}
		out = append(out, entry)
	}

	sort.Slice(out, func(i, k int) bool {
		a, b := out[i], out[k]
		if a.CategoryID != b.CategoryID {
			return a.CategoryID < b.CategoryID
		}
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		return a.Name < b.Name
	})
	return out, nil
}

// MarkReady promotes every startable waiting job to ready.
func (s *StartableService) MarkReady(ctx context.Context, ownerID int64, projectID uuid.UUID) (int, error) {
	startable, err := s.Evaluate(ctx, ownerID, projectID)
	if err != nil {
		return 0, err
	}
	promoted := 0
	for _, entry := range startable {
		if entry.Job.Status != types.JobWaitingForMaterials {
			continue
		}
		err := s.jobs.UpdateFields(ctx, nil, entry.Job.ID, map[string]interface{}{
			"status": types.JobReady,
		})
		if err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

func depsSatisfied(job *types.ProjectJob, byID map[uuid.UUID]*types.ProjectJob) bool {
	for _, depID := range job.DependsOn {
		dep, alive := byID[depID]
		if !alive {
			continue
		}
		if dep.Status != types.JobDone {
			return false
		}
	}
	return true
}
