package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/types"
)

type IndustryJobRepo interface {
	UpsertBatch(ctx context.Context, tx *gorm.DB, rows []types.IndustryJob) error
	// GetByJobID returns nil, nil when the job was never detected.
	GetByJobID(ctx context.Context, tx *gorm.DB, jobID int64) (*types.IndustryJob, error)
	// ListUnassigned returns detected jobs that are neither ignored nor
	// bound to any project job, as reconciliation candidates.
	ListUnassigned(ctx context.Context, tx *gorm.DB, ownerID int64) ([]types.IndustryJob, error)
	MarkIgnored(ctx context.Context, tx *gorm.DB, jobID int64) error
}

type industryJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIndustryJobRepo(db *gorm.DB, baseLog *logger.Logger) IndustryJobRepo {
	return &industryJobRepo{db: db, log: baseLog.With("repo", "IndustryJobRepo")}
}

func (r *industryJobRepo) UpsertBatch(ctx context.Context, tx *gorm.DB, rows []types.IndustryJob) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"runs", "cost", "end_date"}),
		}).
		Create(&rows).Error
	if err != nil {
		return apperror.Map("upsert industry jobs", err)
	}
	return nil
}

func (r *industryJobRepo) GetByJobID(ctx context.Context, tx *gorm.DB, jobID int64) (*types.IndustryJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.IndustryJob
	err := transaction.WithContext(ctx).Where("job_id = ?", jobID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Map("get industry job", err)
	}
	return &row, nil
}

func (r *industryJobRepo) ListUnassigned(ctx context.Context, tx *gorm.DB, ownerID int64) ([]types.IndustryJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.IndustryJob
	err := transaction.WithContext(ctx).
		Where("owner_id = ? AND ignored = false", ownerID).
		Where("job_id NOT IN (?)", transaction.
			Model(&types.ProjectJob{}).
			Select("job_id").
			Where("job_id IS NOT NULL")).
		Order("job_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, apperror.Map("list unassigned industry jobs", err)
	}
	return out, nil
}

func (r *industryJobRepo) MarkIgnored(ctx context.Context, tx *gorm.DB, jobID int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Model(&types.IndustryJob{}).
		Where("job_id = ?", jobID).
		Update("ignored", true).Error; err != nil {
		return apperror.Map("ignore industry job", err)
	}
	return nil
}
