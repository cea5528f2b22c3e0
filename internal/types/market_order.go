package types

import "time"

// MarketOrder is the latest-known state of one open order. At most one row
// per order id globally; the snapshot writer owns its lifecycle.
type MarketOrder struct {
	OrderID     int64     `gorm:"column:order_id;primaryKey" json:"order_id"`
	StructureID int64     `gorm:"column:structure_id;not null;index" json:"structure_id"`
	RegionID    int64     `gorm:"column:region_id;not null" json:"region_id"`
	TypeID      int32     `gorm:"column:type_id;not null;index" json:"type_id"`
	Remaining   int64     `gorm:"column:remaining;not null" json:"remaining"`
	Price       float64   `gorm:"column:price;not null" json:"price"`
	Expires     time.Time `gorm:"column:expires;not null" json:"expires"`
	IsBuy       bool      `gorm:"column:is_buy;not null;default:false" json:"is_buy"`
}

func (MarketOrder) TableName() string { return "market_orders_latest" }

// MarketOrderHistory records every distinct remaining level an order was
// seen at, for trend reconstruction. Keyed (order_id, remaining).
type MarketOrderHistory struct {
	OrderID   int64     `gorm:"column:order_id;primaryKey" json:"order_id"`
	Remaining int64     `gorm:"column:remaining;primaryKey" json:"remaining"`
	SeenAt    time.Time `gorm:"column:seen_at;not null;default:now()" json:"seen_at"`
}

func (MarketOrderHistory) TableName() string { return "market_order_history" }
