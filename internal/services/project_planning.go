package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/industry"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/repos"
	"github.com/evetools/indy/internal/sde"
	"github.com/evetools/indy/internal/types"
)

// PlanOptions carries the per-project knobs of one planning run.
type PlanOptions struct {
	StructureIDs       []uuid.UUID
	Mappings           []industry.StructureMapping
	MaterialOverwrites map[int32]float64
	RunPolicies        map[int32]int32
	SkipChildren       bool
	FacilityTax        float64
	RoleTax            float64
	SellPrice          *float64
	GroupID            *uuid.UUID
}

// ProjectService turns plan requests into persisted projects and manages
// their lifecycle.
type ProjectService struct {
	log        *logger.Logger
	db         *gorm.DB
	static     *sde.Store
	projects   repos.ProjectRepo
	jobs       repos.ProjectJobRepo
	structures repos.StructureRepo
	indices    repos.IndustryIndexRepo
}

func NewProjectService(
	baseLog *logger.Logger,
	db *gorm.DB,
	static *sde.Store,
	projects repos.ProjectRepo,
	jobs repos.ProjectJobRepo,
	structures repos.StructureRepo,
	indices repos.IndustryIndexRepo,
) *ProjectService {
	return &ProjectService{
		log:        baseLog.With("service", "ProjectService"),
		db:         db,
		static:     static,
		projects:   projects,
		jobs:       jobs,
		structures: structures,
		indices:    indices,
	}
}

// Plan resolves a build request against the caller's structures without
// persisting anything. Preview and create share this path.
func (s *ProjectService) Plan(ctx context.Context, ownerID int64, req industry.Request, opts PlanOptions) (*industry.PlanResult, industry.ProjectConfig, error) {
	cfg, err := s.assembleConfig(ctx, ownerID, opts)
	if err != nil {
		return nil, industry.ProjectConfig{}, err
	}

	systemIDs := make([]int64, 0, len(cfg.Structures))
	for _, desc := range cfg.Structures {
		systemIDs = append(systemIDs, desc.SystemID)
	}
	snapshot, err := loadIndexSnapshot(ctx, s.indices, systemIDs)
	if err != nil {
		return nil, industry.ProjectConfig{}, err
	}

	engine := industry.NewEngine(s.static, snapshot, s.log)
	plan, err := engine.BuildPlan(req, cfg)
	if err != nil {
		return nil, industry.ProjectConfig{}, err
	}
	return plan, cfg, nil
}

// CreateProject plans and persists a project with its jobs, requirements and
// excess in one transaction. Job dependency edges follow the plan tree: a
// parent job depends on every job of its child nodes.
func (s *ProjectService) CreateProject(ctx context.Context, ownerID int64, name string, req industry.Request, opts PlanOptions) (*types.Project, *industry.PlanResult, error) {
	if name == "" {
		return nil, nil, apperror.Validation("project name required")
	}
	plan, _, err := s.Plan(ctx, ownerID, req, opts)
	if err != nil {
		return nil, nil, err
	}

	project := &types.Project{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      name,
		Status:    types.ProjectPreparing,
		GroupID:   opts.GroupID,
		SellPrice: opts.SellPrice,
	}

	err = s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if _, err := s.projects.Create(ctx, txx, project); err != nil {
			return err
		}
		jobs := buildProjectJobs(project.ID, plan)
		if _, err := s.jobs.CreateBatch(ctx, txx, jobs); err != nil {
			return err
		}

		reqs := make([]types.MarketRequirement, 0, len(plan.Bill))
		for typeID, qty := range plan.Bill {
			reqs = append(reqs, types.MarketRequirement{
				ProjectID: project.ID,
				TypeID:    typeID,
				Quantity:  qty,
			})
		}
		if err := s.projects.ReplaceRequirements(ctx, txx, project.ID, reqs); err != nil {
			return err
		}

		excess := make([]types.ProjectExcess, 0, len(plan.Excess))
		for typeID, qty := range plan.Excess {
			excess = append(excess, types.ProjectExcess{
				ProjectID: project.ID,
				TypeID:    typeID,
				Quantity:  qty,
			})
		}
		return s.projects.ReplaceExcess(ctx, txx, project.ID, excess)
	})
	if err != nil {
		return nil, nil, err
	}
	return project, plan, nil
}

// buildProjectJobs flattens the plan into job rows. Plan jobs arrive
// children-first, so every dependency id exists before it is referenced.
func buildProjectJobs(projectID uuid.UUID, plan *industry.PlanResult) []*types.ProjectJob {
	nodeByType := map[int32]int{}
	for id, n := range plan.Nodes {
		if !n.Leaf && n.Runs > 0 {
			nodeByType[n.TypeID] = id
		}
	}
	jobIDsByNode := map[int][]uuid.UUID{}

	jobs := make([]*types.ProjectJob, 0, len(plan.Jobs))
	for _, job := range plan.Jobs {
		nodeID := nodeByType[job.TypeID]

		var deps []uuid.UUID
		for _, childID := range plan.Children[nodeID] {
			deps = append(deps, jobIDsByNode[childID]...)
		}

		row := &types.ProjectJob{
			ID:          uuid.New(),
			ProjectID:   projectID,
			TypeID:      job.TypeID,
			Runs:        job.Runs,
			StructureID: job.StructureID,
			Status:      types.JobWaitingForMaterials,
			DependsOn:   datatypes.NewJSONSlice(deps),
		}
		jobIDsByNode[nodeID] = append(jobIDsByNode[nodeID], row.ID)
		jobs = append(jobs, row)
	}
	return jobs
}

func (s *ProjectService) assembleConfig(ctx context.Context, ownerID int64, opts PlanOptions) (industry.ProjectConfig, error) {
	var rows []*types.Structure
	var err error
	if len(opts.StructureIDs) > 0 {
		rows, err = s.structures.GetByIDs(ctx, nil, opts.StructureIDs)
	} else {
		rows, err = s.structures.ListByOwner(ctx, nil, ownerID)
	}
	if err != nil {
		return industry.ProjectConfig{}, err
	}
	if len(rows) == 0 {
		return industry.ProjectConfig{}, apperror.Validation("no structures configured")
	}

	builder := industry.NewConfig().
		SkipChildren(opts.SkipChildren).
		WithTaxes(opts.FacilityTax, opts.RoleTax)
	for _, row := range rows {
		if row.OwnerID != ownerID {
			return industry.ProjectConfig{}, apperror.NotFound("structure")
		}
		builder.WithStructures(industry.StructureDescriptor{
			ID:          row.ID,
			StructureID: row.StructureID,
			SystemID:    row.SystemID,
			TypeID:      row.TypeID,
			Rigs:        row.Rigs,
			Services:    row.Services,
		})
	}
	for _, m := range opts.Mappings {
		builder.WithMapping(m.StructureID, m.CategoryGroup)
	}
	for bpType, me := range opts.MaterialOverwrites {
		builder.WithMaterialOverwrite(bpType, me)
	}
	for bpType, maxRuns := range opts.RunPolicies {
		builder.WithRunPolicy(bpType, maxRuns)
	}
	return builder.Build(), nil
}

func (s *ProjectService) Get(ctx context.Context, ownerID int64, id uuid.UUID) (*types.Project, error) {
	project, err := s.projects.GetByIDForOwner(ctx, nil, id, ownerID)
	if err != nil {
		return nil, err
	}
	jobs, err := s.jobs.ListByProject(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		project.Jobs = append(project.Jobs, *j)
	}
	if project.Requirements, err = s.projects.ListRequirements(ctx, nil, id); err != nil {
		return nil, err
	}
	if project.Stock, err = s.projects.ListStock(ctx, nil, id); err != nil {
		return nil, err
	}
	if project.Misc, err = s.projects.ListMisc(ctx, nil, id); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) List(ctx context.Context, ownerID int64) ([]*types.Project, error) {
	return s.projects.ListByOwner(ctx, nil, ownerID)
}

// validStatusTransitions guards the project lifecycle; done and aborted are
// terminal.
var validStatusTransitions = map[string][]string{
	types.ProjectPreparing:  {types.ProjectInProgress, types.ProjectAborted},
	types.ProjectInProgress: {types.ProjectPaused, types.ProjectDone, types.ProjectAborted},
	types.ProjectPaused:     {types.ProjectInProgress, types.ProjectAborted},
}

func (s *ProjectService) UpdateStatus(ctx context.Context, ownerID int64, id uuid.UUID, status string) error {
	project, err := s.projects.GetByIDForOwner(ctx, nil, id, ownerID)
	if err != nil {
		return err
	}
	allowed := false
	for _, next := range validStatusTransitions[project.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return apperror.Validation("cannot move project from %s to %s", project.Status, status)
	}
	return s.projects.UpdateFields(ctx, nil, id, map[string]interface{}{"status": status})
}

func (s *ProjectService) Delete(ctx context.Context, ownerID int64, id uuid.UUID) error {
	if _, err := s.projects.GetByIDForOwner(ctx, nil, id, ownerID); err != nil {
		return err
	}
	return s.projects.Delete(ctx, nil, id)
}

func (s *ProjectService) SetStock(ctx context.Context, ownerID int64, projectID uuid.UUID, typeID int32, quantity int64, cost *float64) error {
	if _, err := s.projects.GetByIDForOwner(ctx, nil, projectID, ownerID); err != nil {
		return err
	}
	if quantity < 0 {
		return apperror.Validation("stock quantity must be >= 0")
	}
	return s.projects.UpsertStock(ctx, nil, &types.ProjectStock{
		ProjectID: projectID,
		TypeID:    typeID,
		Quantity:  quantity,
		Cost:      cost,
	})
}

func (s *ProjectService) AddMisc(ctx context.Context, ownerID int64, projectID uuid.UUID, description string, quantity int64, cost *float64) error {
	if _, err := s.projects.GetByIDForOwner(ctx, nil, projectID, ownerID); err != nil {
		return err
	}
	if description == "" {
		return apperror.Validation("misc description required")
	}
	if quantity < 1 {
		quantity = 1
	}
	return s.projects.AddMisc(ctx, nil, &types.ProjectMisc{
		ProjectID:   projectID,
		Description: description,
		Quantity:    quantity,
		Cost:        cost,
	})
}
