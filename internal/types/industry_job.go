package types

import "time"

// IndustryJob is a game-reported industry job detected by polling. The
// reconciler binds these to project jobs by JobID; Ignored rows are never
// re-suggested.
type IndustryJob struct {
	JobID       int64     `gorm:"column:job_id;primaryKey" json:"job_id"`
	OwnerID     int64     `gorm:"column:owner_id;not null;index" json:"owner_id"`
	TypeID      int32     `gorm:"column:type_id;not null" json:"type_id"`
	Runs        int32     `gorm:"column:runs;not null" json:"runs"`
	StructureID int64     `gorm:"column:structure_id;not null" json:"structure_id"`
	Activity    string    `gorm:"column:activity;not null" json:"activity"`
	Cost        float64   `gorm:"column:cost;not null;default:0" json:"cost"`
	EndDate     time.Time `gorm:"column:end_date" json:"end_date"`
	Ignored     bool      `gorm:"column:ignored;not null;default:false" json:"ignored"`
}

func (IndustryJob) TableName() string { return "industry_job" }
