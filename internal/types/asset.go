package types

import "time"

// OwnedAsset is one item stack a character or corporation owns, refreshed
// wholesale per owner by the asset poll.
type OwnedAsset struct {
	ItemID     int64     `gorm:"column:item_id;primaryKey" json:"item_id"`
	OwnerID    int64     `gorm:"column:owner_id;not null;index" json:"owner_id"`
	TypeID     int32     `gorm:"column:type_id;not null;index" json:"type_id"`
	LocationID int64     `gorm:"column:location_id;not null;index" json:"location_id"`
	Quantity   int64     `gorm:"column:quantity;not null" json:"quantity"`
	Flag       string    `gorm:"column:flag;not null;default:''" json:"flag"`
	UpdatedAt  time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (OwnedAsset) TableName() string { return "owned_asset" }

// OwnedBlueprint is one blueprint original or copy in an owner's hangar,
// carrying its researched efficiency levels.
type OwnedBlueprint struct {
	ItemID             int64     `gorm:"column:item_id;primaryKey" json:"item_id"`
	OwnerID            int64     `gorm:"column:owner_id;not null;index" json:"owner_id"`
	TypeID             int32     `gorm:"column:type_id;not null;index" json:"type_id"`
	LocationID         int64     `gorm:"column:location_id;not null" json:"location_id"`
	MaterialEfficiency int32     `gorm:"column:material_efficiency;not null;default:0" json:"material_efficiency"`
	TimeEfficiency     int32     `gorm:"column:time_efficiency;not null;default:0" json:"time_efficiency"`
	Runs               int32     `gorm:"column:runs;not null;default:-1" json:"runs"`
	Quantity           int64     `gorm:"column:quantity;not null;default:1" json:"quantity"`
	UpdatedAt          time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (OwnedBlueprint) TableName() string { return "owned_blueprint" }
