package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/types"
)

// AdjustedPrice pairs a type with its gateway-reported adjusted price.
type AdjustedPrice struct {
	TypeID int32
	Price  float64
}

type ItemRepo interface {
	// UpdateAdjustedPrices writes the global price list onto existing item
	// rows. Types unknown to the static import are skipped.
	UpdateAdjustedPrices(ctx context.Context, tx *gorm.DB, prices []AdjustedPrice) error
	GetByIDs(ctx context.Context, tx *gorm.DB, typeIDs []int32) ([]types.Item, error)
}

type itemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewItemRepo(db *gorm.DB, baseLog *logger.Logger) ItemRepo {
	return &itemRepo{db: db, log: baseLog.With("repo", "ItemRepo")}
}

func (r *itemRepo) UpdateAdjustedPrices(ctx context.Context, tx *gorm.DB, prices []AdjustedPrice) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(prices) == 0 {
		return nil
	}
	ids := make([]int32, 0, len(prices))
	for _, p := range prices {
		ids = append(ids, p.TypeID)
	}
	var known []int32
	if err := transaction.WithContext(ctx).
		Model(&types.Item{}).
		Where("type_id IN ?", ids).
		Pluck("type_id", &known).Error; err != nil {
		return apperror.Map("update adjusted prices", err)
	}
	knownSet := make(map[int32]struct{}, len(known))
	for _, id := range known {
		knownSet[id] = struct{}{}
	}
	rows := make([]types.Item, 0, len(prices))
	for _, p := range prices {
		if _, ok := knownSet[p.TypeID]; !ok {
			continue
		}
		price := p.Price
		rows = append(rows, types.Item{TypeID: p.TypeID, AdjustedPrice: &price})
	}
	if len(rows) == 0 {
		return nil
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "type_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"adjusted_price"}),
		}).
		CreateInBatches(&rows, 500).Error
	if err != nil {
		return apperror.Map("update adjusted prices", err)
	}
	return nil
}

func (r *itemRepo) GetByIDs(ctx context.Context, tx *gorm.DB, typeIDs []int32) ([]types.Item, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.Item
	if err := transaction.WithContext(ctx).
		Where("type_id IN ?", typeIDs).
		Find(&out).Error; err != nil {
		return nil, apperror.Map("get items", err)
	}
	return out, nil
}
