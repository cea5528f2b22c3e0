package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/types"
)

type ProjectJobRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, jobs []*types.ProjectJob) ([]*types.ProjectJob, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ProjectJob, error)
	GetByExternalJobID(ctx context.Context, tx *gorm.DB, jobID int64) (*types.ProjectJob, error)
	ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.ProjectJob, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error

	// Bind stamps the external game job id onto a project job, moving it to
	// queued. The job_id unique index makes double-binding impossible; the
	// row-level check surfaces it as AlreadyAssigned before the constraint
	// trips.
	Bind(ctx context.Context, tx *gorm.DB, id uuid.UUID, jobID int64, cost *float64) error
	// Unbind clears the external id and reverts the job to
	// waiting_for_materials with its cost cleared.
	Unbind(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type projectJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectJobRepo(db *gorm.DB, baseLog *logger.Logger) ProjectJobRepo {
	return &projectJobRepo{db: db, log: baseLog.With("repo", "ProjectJobRepo")}
}

func (r *projectJobRepo) CreateBatch(ctx context.Context, tx *gorm.DB, jobs []*types.ProjectJob) ([]*types.ProjectJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(jobs) == 0 {
		return []*types.ProjectJob{}, nil
	}
	for _, j := range jobs {
		if j.ID == uuid.Nil {
			j.ID = uuid.New()
		}
		if j.Status == "" {
			j.Status = types.JobWaitingForMaterials
		}
	}
	if err := transaction.WithContext(ctx).Create(&jobs).Error; err != nil {
		return nil, apperror.Map("create project jobs", err)
	}
	return jobs, nil
}

func (r *projectJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ProjectJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.ProjectJob
	if err := transaction.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, apperror.Map("get project job", err)
	}
	return &job, nil
}

func (r *projectJobRepo) GetByExternalJobID(ctx context.Context, tx *gorm.DB, jobID int64) (*types.ProjectJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.ProjectJob
	err := transaction.WithContext(ctx).Where("job_id = ?", jobID).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Map("get project job by external id", err)
	}
	return &job, nil
}

func (r *projectJobRepo) ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.ProjectJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ProjectJob
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, apperror.Map("list project jobs", err)
	}
	return out, nil
}

func (r *projectJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	if err := transaction.WithContext(ctx).
		Model(&types.ProjectJob{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return apperror.Map("update project job", err)
	}
	return nil
}

func (r *projectJobRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.ProjectJob{}).Error; err != nil {
		return apperror.Map("delete project job", err)
	}
	return nil
}

func (r *projectJobRepo) Bind(ctx context.Context, tx *gorm.DB, id uuid.UUID, jobID int64, cost *float64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		existing, err := r.GetByExternalJobID(ctx, txx, jobID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.Map("bind project job",
				fmt.Errorf("job id %d already bound to project job %s: %w",
					jobID, existing.ID, apperror.ErrAlreadyAssigned))
		}
		now := time.Now().UTC()
		res := txx.Model(&types.ProjectJob{}).
			Where("id = ? AND status IN ?", id,
				[]string{types.JobWaitingForMaterials, types.JobReady}).
			Updates(map[string]interface{}{
				"status":     types.JobQueued,
				"job_id":     jobID,
				"cost":       cost,
				"updated_at": now,
			})
		if res.Error != nil {
			return apperror.Map("bind project job", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound("project job not bindable")
		}
		return nil
	})
}

func (r *projectJobRepo) Unbind(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Model(&types.ProjectJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     types.JobWaitingForMaterials,
			"job_id":     nil,
			"cost":       nil,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return apperror.Map("unbind project job", err)
	}
	return nil
}
