package types

import "time"

// IndustryIndex is one per-system cost-index snapshot. Append-only; the
// worker inserts a fresh row per poll and readers take the newest.
type IndustryIndex struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SystemID         int64     `gorm:"column:system_id;not null;index:idx_industry_index_system_ts" json:"system_id"`
	Timestamp        time.Time `gorm:"column:timestamp;not null;index:idx_industry_index_system_ts" json:"timestamp"`
	Manufacturing    float64   `gorm:"column:manufacturing;not null" json:"manufacturing"`
	Reaction         float64   `gorm:"column:reaction;not null" json:"reaction"`
	Copying          float64   `gorm:"column:copying;not null" json:"copying"`
	Invention        float64   `gorm:"column:invention;not null" json:"invention"`
	ResearchMaterial float64   `gorm:"column:research_material;not null" json:"research_material"`
	ResearchTime     float64   `gorm:"column:research_time;not null" json:"research_time"`
}

func (IndustryIndex) TableName() string { return "industry_index" }
