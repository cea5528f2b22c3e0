package types

// Item is static item metadata from the SDE import. Immutable at runtime.
type Item struct {
	TypeID           int32    `gorm:"column:type_id;primaryKey" json:"type_id"`
	Name             string   `gorm:"column:name;not null" json:"name"`
	CategoryID       int32    `gorm:"column:category_id;not null;index" json:"category_id"`
	GroupID          int32    `gorm:"column:group_id;not null;index" json:"group_id"`
	MetaGroupID      *int32   `gorm:"column:meta_group_id" json:"meta_group_id,omitempty"`
	Volume           float64  `gorm:"column:volume;not null;default:0" json:"volume"`
	RepackagedVolume *float64 `gorm:"column:repackaged_volume" json:"repackaged_volume,omitempty"`
	AdjustedPrice    *float64 `gorm:"column:adjusted_price" json:"adjusted_price,omitempty"`
}

func (Item) TableName() string { return "item" }
