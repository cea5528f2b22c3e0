package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/types"
)

type ContractRepo interface {
	UpsertHeaders(ctx context.Context, tx *gorm.DB, regionID int64, rows []types.Contract) error
	// ListUnfetched returns contracts whose item lists were never pulled.
	ListUnfetched(ctx context.Context, tx *gorm.DB, limit int) ([]types.Contract, error)
	SetItems(ctx context.Context, tx *gorm.DB, contractID int64, items []types.ContractItem) error
	PruneExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error)
}

type contractRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContractRepo(db *gorm.DB, baseLog *logger.Logger) ContractRepo {
	return &contractRepo{db: db, log: baseLog.With("repo", "ContractRepo")}
}

func (r *contractRepo) UpsertHeaders(ctx context.Context, tx *gorm.DB, regionID int64, rows []types.Contract) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rows[i].RegionID = regionID
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "contract_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"price", "title", "expires"}),
		}).
		CreateInBatches(&rows, 500).Error
	if err != nil {
		return apperror.Map("upsert contracts", err)
	}
	return nil
}

func (r *contractRepo) ListUnfetched(ctx context.Context, tx *gorm.DB, limit int) ([]types.Contract, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []types.Contract
	err := transaction.WithContext(ctx).
		Where("items_fetched = false AND type = ?", "item_exchange").
		Order("date_issued ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, apperror.Map("list unfetched contracts", err)
	}
	return out, nil
}

func (r *contractRepo) SetItems(ctx context.Context, tx *gorm.DB, contractID int64, items []types.ContractItem) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if len(items) > 0 {
			for i := range items {
				items[i].ContractID = contractID
			}
			err := txx.Clauses(clause.OnConflict{DoNothing: true}).
				CreateInBatches(&items, 500).Error
			if err != nil {
				return apperror.Map("set contract items", err)
			}
		}
		err := txx.Model(&types.Contract{}).
			Where("contract_id = ?", contractID).
			Update("items_fetched", true).Error
		if err != nil {
			return apperror.Map("set contract items", err)
		}
		return nil
	})
}

func (r *contractRepo) PruneExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var pruned int64
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var ids []int64
		if err := txx.Model(&types.Contract{}).
			Where("expires < ?", now).
			Pluck("contract_id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := txx.Where("contract_id IN ?", ids).Delete(&types.ContractItem{}).Error; err != nil {
			return err
		}
		res := txx.Where("contract_id IN ?", ids).Delete(&types.Contract{})
		if res.Error != nil {
			return res.Error
		}
		pruned = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, apperror.Map("prune contracts", err)
	}
	return pruned, nil
}
