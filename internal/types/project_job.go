package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Project job statuses.
const (
	JobWaitingForMaterials = "waiting_for_materials"
	JobReady               = "ready"
	JobQueued              = "queued"
	JobBuilding            = "building"
	JobDone                = "done"
	JobCanceled            = "canceled"
)

// ProjectJob is one planned production run. JobID is the external game job
// id once detection binds it; it is unique across all project jobs when
// non-null. DependsOn lists sibling job ids that must be done before this
// one becomes startable.
type ProjectJob struct {
	ID          uuid.UUID                      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID   uuid.UUID                      `gorm:"column:project_id;type:uuid;not null;index" json:"project_id"`
	TypeID      int32                          `gorm:"column:type_id;not null" json:"type_id"`
	Runs        int32                          `gorm:"column:runs;not null" json:"runs"`
	StructureID uuid.UUID                      `gorm:"column:structure_id;type:uuid;not null" json:"structure_id"`
	Status      string                         `gorm:"column:status;not null;default:waiting_for_materials" json:"status"`
	JobID       *int64                         `gorm:"column:job_id;uniqueIndex" json:"job_id,omitempty"`
	Cost        *float64                       `gorm:"column:cost" json:"cost,omitempty"`
	DependsOn   datatypes.JSONSlice[uuid.UUID] `gorm:"column:depends_on;type:jsonb" json:"depends_on"`
	CreatedAt   time.Time                      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time                      `gorm:"not null;default:now()" json:"updated_at"`
}

func (ProjectJob) TableName() string { return "project_job" }
