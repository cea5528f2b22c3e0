package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/types"
)

type IndustryIndexRepo interface {
	// Append inserts fresh snapshot rows; existing rows are never mutated.
	Append(ctx context.Context, tx *gorm.DB, rows []types.IndustryIndex) error
	Latest(ctx context.Context, tx *gorm.DB, systemID int64) (*types.IndustryIndex, error)
}

type industryIndexRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIndustryIndexRepo(db *gorm.DB, baseLog *logger.Logger) IndustryIndexRepo {
	return &industryIndexRepo{db: db, log: baseLog.With("repo", "IndustryIndexRepo")}
}

func (r *industryIndexRepo) Append(ctx context.Context, tx *gorm.DB, rows []types.IndustryIndex) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return apperror.Map("append industry indices", err)
	}
	return nil
}

func (r *industryIndexRepo) Latest(ctx context.Context, tx *gorm.DB, systemID int64) (*types.IndustryIndex, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.IndustryIndex
	err := transaction.WithContext(ctx).
		Where("system_id = ?", systemID).
		Order("timestamp DESC").
		Limit(1).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Map("latest industry index", err)
	}
	return &row, nil
}
