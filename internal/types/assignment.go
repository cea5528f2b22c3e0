package types

import (
	"time"

	"github.com/google/uuid"
)

// Assignment bundles project jobs, possibly across projects, that the user
// intends to queue together at one structure.
type Assignment struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerID   int64     `gorm:"column:owner_id;not null;index" json:"owner_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`

	Jobs []AssignmentJob `gorm:"constraint:OnDelete:CASCADE;foreignKey:AssignmentID;references:ID" json:"jobs,omitempty"`
}

func (Assignment) TableName() string { return "job_assignment" }

// AssignmentJob is one member of an assignment bundle.
type AssignmentJob struct {
	AssignmentID uuid.UUID `gorm:"column:assignment_id;type:uuid;primaryKey" json:"assignment_id"`
	ProjectJobID uuid.UUID `gorm:"column:project_job_id;type:uuid;primaryKey" json:"project_job_id"`
	Started      bool      `gorm:"column:started;not null;default:false" json:"started"`
}

func (AssignmentJob) TableName() string { return "job_assignment_job" }
