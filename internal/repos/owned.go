package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/types"
)

type OwnedRepo interface {
	// ReplaceAssets swaps the owner's asset rows for the fresh poll in one
	// transaction.
	ReplaceAssets(ctx context.Context, tx *gorm.DB, ownerID int64, rows []types.OwnedAsset) error
	ReplaceBlueprints(ctx context.Context, tx *gorm.DB, ownerID int64, rows []types.OwnedBlueprint) error
	ListAssets(ctx context.Context, tx *gorm.DB, ownerID int64, typeIDs []int32) ([]types.OwnedAsset, error)
	ListBlueprints(ctx context.Context, tx *gorm.DB, ownerID int64) ([]types.OwnedBlueprint, error)
}

type ownedRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOwnedRepo(db *gorm.DB, baseLog *logger.Logger) OwnedRepo {
	return &ownedRepo{db: db, log: baseLog.With("repo", "OwnedRepo")}
}

func (r *ownedRepo) ReplaceAssets(ctx context.Context, tx *gorm.DB, ownerID int64, rows []types.OwnedAsset) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("owner_id = ?", ownerID).Delete(&types.OwnedAsset{}).Error; err != nil {
			return apperror.Map("replace assets", err)
		}
		if len(rows) == 0 {
			return nil
		}
		for i := range rows {
			rows[i].OwnerID = ownerID
		}
		if err := txx.CreateInBatches(&rows, 500).Error; err != nil {
			return apperror.Map("replace assets", err)
		}
		return nil
	})
}

func (r *ownedRepo) ReplaceBlueprints(ctx context.Context, tx *gorm.DB, ownerID int64, rows []types.OwnedBlueprint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("owner_id = ?", ownerID).Delete(&types.OwnedBlueprint{}).Error; err != nil {
			return apperror.Map("replace blueprints", err)
		}
		if len(rows) == 0 {
			return nil
		}
		for i := range rows {
			rows[i].OwnerID = ownerID
		}
		if err := txx.CreateInBatches(&rows, 500).Error; err != nil {
			return apperror.Map("replace blueprints", err)
		}
		return nil
	})
}

func (r *ownedRepo) ListAssets(ctx context.Context, tx *gorm.DB, ownerID int64, typeIDs []int32) ([]types.OwnedAsset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.OwnedAsset
	q := transaction.WithContext(ctx).Where("owner_id = ?", ownerID)
	if len(typeIDs) > 0 {
		q = q.Where("type_id IN ?", typeIDs)
	}
	if err := q.Order("item_id ASC").Find(&out).Error; err != nil {
		return nil, apperror.Map("list assets", err)
	}
	return out, nil
}

func (r *ownedRepo) ListBlueprints(ctx context.Context, tx *gorm.DB, ownerID int64) ([]types.OwnedBlueprint, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.OwnedBlueprint
	if err := transaction.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("item_id ASC").
		Find(&out).Error; err != nil {
		return nil, apperror.Map("list blueprints", err)
	}
	return out, nil
}
