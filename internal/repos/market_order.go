package repos

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/types"
)

type MarketOrderRepo interface {
	// ReplaceSnapshot applies one market poll in a single transaction:
	// dedup, conditional upsert, removal of vanished/empty/expired rows and
	// the history append. Partial visibility is forbidden.
	ReplaceSnapshot(ctx context.Context, tx *gorm.DB, structureID int64, orders []types.MarketOrder, now time.Time) error
	// UpsertOwn merges an owner's order feed into the latest table without
	// touching other orders at the same markets.
	UpsertOwn(ctx context.Context, tx *gorm.DB, orders []types.MarketOrder, now time.Time) error
	// OpenSellOrders returns live sell orders at the given markets for the
	// given types.
	OpenSellOrders(ctx context.Context, tx *gorm.DB, structureIDs []int64, typeIDs []int32, now time.Time) ([]types.MarketOrder, error)
}

type marketOrderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMarketOrderRepo(db *gorm.DB, baseLog *logger.Logger) MarketOrderRepo {
	return &marketOrderRepo{db: db, log: baseLog.With("repo", "MarketOrderRepo")}
}

func (r *marketOrderRepo) ReplaceSnapshot(ctx context.Context, tx *gorm.DB, structureID int64, orders []types.MarketOrder, now time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	rows := dedupOrders(orders)
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		orderIDs := make([]int64, 0, len(rows))
		for i := range rows {
			rows[i].StructureID = structureID
			orderIDs = append(orderIDs, rows[i].OrderID)
		}

		if len(rows) > 0 {
			// Touch remaining/price/expires only when at least one of them
			// actually changed, keeping write amplification down.
			err := txx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "order_id"}},
				Where: clause.Where{Exprs: []clause.Expression{gorm.Expr(
					"market_orders_latest.remaining <> excluded.remaining" +
						" OR market_orders_latest.price <> excluded.price" +
						" OR market_orders_latest.expires <> excluded.expires",
				)}},
				DoUpdates: clause.AssignmentColumns([]string{"remaining", "price", "expires"}),
			}).Create(&rows).Error
			if err != nil {
				return apperror.Map("upsert market orders", err)
			}
		}

		// Drop whatever the fresh poll no longer carries, plus rows that
		// are sold out or past their expiry.
		del := txx.Where("structure_id = ?", structureID)
		if len(orderIDs) > 0 {
			del = del.Where("order_id NOT IN ? OR remaining = 0 OR expires < ?", orderIDs, now)
		}
		if err := del.Delete(&types.MarketOrder{}).Error; err != nil {
			return apperror.Map("prune market orders", err)
		}

		if len(rows) > 0 {
			history := make([]types.MarketOrderHistory, 0, len(rows))
			for _, row := range rows {
				history = append(history, types.MarketOrderHistory{
					OrderID:   row.OrderID,
					Remaining: row.Remaining,
					SeenAt:    now,
				})
			}
			err := txx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "order_id"}, {Name: "remaining"}},
				DoNothing: true,
			}).Create(&history).Error
			if err != nil {
				return apperror.Map("append market order history", err)
			}
		}
		return nil
	})
}

func (r *marketOrderRepo) UpsertOwn(ctx context.Context, tx *gorm.DB, orders []types.MarketOrder, now time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	rows := dedupOrders(orders)
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		err := txx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_id"}},
			Where: clause.Where{Exprs: []clause.Expression{gorm.Expr(
				"market_orders_latest.remaining <> excluded.remaining" +
					" OR market_orders_latest.price <> excluded.price" +
					" OR market_orders_latest.expires <> excluded.expires",
			)}},
			DoUpdates: clause.AssignmentColumns([]string{"remaining", "price", "expires"}),
		}).Create(&rows).Error
		if err != nil {
			return apperror.Map("upsert own orders", err)
		}

		history := make([]types.MarketOrderHistory, 0, len(rows))
		for _, row := range rows {
			history = append(history, types.MarketOrderHistory{
				OrderID:   row.OrderID,
				Remaining: row.Remaining,
				SeenAt:    now,
			})
		}
		err = txx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "remaining"}},
			DoNothing: true,
		}).Create(&history).Error
		if err != nil {
			return apperror.Map("append own order history", err)
		}
		return nil
	})
}

// dedupOrders sorts by order id and keeps the last occurrence of each.
func dedupOrders(orders []types.MarketOrder) []types.MarketOrder {
	if len(orders) == 0 {
		return nil
	}
	sorted := make([]types.MarketOrder, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrderID < sorted[j].OrderID
	})
	out := sorted[:0]
	for i := range sorted {
		if len(out) > 0 && out[len(out)-1].OrderID == sorted[i].OrderID {
			out[len(out)-1] = sorted[i]
			continue
		}
		out = append(out, sorted[i])
	}
	return out
}

func (r *marketOrderRepo) OpenSellOrders(ctx context.Context, tx *gorm.DB, structureIDs []int64, typeIDs []int32, now time.Time) ([]types.MarketOrder, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.MarketOrder
	q := transaction.WithContext(ctx).
		Where("is_buy = false AND remaining > 0 AND expires > ?", now)
	if len(structureIDs) > 0 {
		q = q.Where("structure_id IN ?", structureIDs)
	}
	if len(typeIDs) > 0 {
		q = q.Where("type_id IN ?", typeIDs)
	}
	if err := q.Order("price ASC, order_id ASC").Find(&out).Error; err != nil {
		return nil, apperror.Map("list open sell orders", err)
	}
	return out, nil
}
