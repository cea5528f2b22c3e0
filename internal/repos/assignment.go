package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/types"
)

type AssignmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, a *types.Assignment) error
	Get(ctx context.Context, tx *gorm.DB, ownerID int64, id uuid.UUID) (*types.Assignment, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID int64) ([]types.Assignment, error)
	AddJobs(ctx context.Context, tx *gorm.DB, id uuid.UUID, projectJobIDs []uuid.UUID) error
	MarkStarted(ctx context.Context, tx *gorm.DB, id uuid.UUID, projectJobID uuid.UUID) error
	Delete(ctx context.Context, tx *gorm.DB, ownerID int64, id uuid.UUID) error
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return &assignmentRepo{db: db, log: baseLog.With("repo", "AssignmentRepo")}
}

func (r *assignmentRepo) Create(ctx context.Context, tx *gorm.DB, a *types.Assignment) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(a).Error; err != nil {
		return apperror.Map("create assignment", err)
	}
	return nil
}

func (r *assignmentRepo) Get(ctx context.Context, tx *gorm.DB, ownerID int64, id uuid.UUID) (*types.Assignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var a types.Assignment
	err := transaction.WithContext(ctx).
		Preload("Jobs").
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&a).Error
	if err != nil {
		return nil, apperror.Map("get assignment", err)
	}
	return &a, nil
}

func (r *assignmentRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID int64) ([]types.Assignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.Assignment
	err := transaction.WithContext(ctx).
		Preload("Jobs").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, apperror.Map("list assignments", err)
	}
	return out, nil
}

func (r *assignmentRepo) AddJobs(ctx context.Context, tx *gorm.DB, id uuid.UUID, projectJobIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(projectJobIDs) == 0 {
		return nil
	}
	rows := make([]types.AssignmentJob, 0, len(projectJobIDs))
	for _, jobID := range projectJobIDs {
		rows = append(rows, types.AssignmentJob{AssignmentID: id, ProjectJobID: jobID})
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return apperror.Map("add assignment jobs", err)
	}
	return nil
}

func (r *assignmentRepo) MarkStarted(ctx context.Context, tx *gorm.DB, id uuid.UUID, projectJobID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.AssignmentJob{}).
		Where("assignment_id = ? AND project_job_id = ?", id, projectJobID).
		Update("started", true)
	if res.Error != nil {
		return apperror.Map("mark assignment job started", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.Map("mark assignment job started", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *assignmentRepo) Delete(ctx context.Context, tx *gorm.DB, ownerID int64, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var a types.Assignment
		if err := txx.Where("id = ? AND owner_id = ?", id, ownerID).First(&a).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("assignment")
			}
			return apperror.Map("delete assignment", err)
		}
		if err := txx.Where("assignment_id = ?", id).Delete(&types.AssignmentJob{}).Error; err != nil {
			return apperror.Map("delete assignment", err)
		}
		if err := txx.Where("id = ?", id).Delete(&types.Assignment{}).Error; err != nil {
			return apperror.Map("delete assignment", err)
		}
		return nil
	})
}
