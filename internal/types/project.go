package types

import (
	"time"

	"github.com/google/uuid"
)

// Project statuses.
const (
	ProjectPreparing  = "preparing"
	ProjectInProgress = "in_progress"
	ProjectPaused     = "paused"
	ProjectAborted    = "aborted"
	ProjectDone       = "done"
)

// Project is one planned build: a target product plus everything derived
// from it. It exclusively owns its jobs, requirements, stock, excess and
// misc lines; deleting it cascades.
type Project struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerID   int64      `gorm:"column:owner_id;not null;index" json:"owner_id"`
	Name      string     `gorm:"column:name;not null" json:"name"`
	Status    string     `gorm:"column:status;not null;default:preparing" json:"status"`
	GroupID   *uuid.UUID `gorm:"column:group_id;type:uuid" json:"group_id,omitempty"`
	SellPrice *float64   `gorm:"column:sell_price" json:"sell_price,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updated_at"`

	Jobs         []ProjectJob        `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"jobs,omitempty"`
	Requirements []MarketRequirement `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"requirements,omitempty"`
	Stock        []ProjectStock      `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"stock,omitempty"`
	Excess       []ProjectExcess     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"excess,omitempty"`
	Misc         []ProjectMisc       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"misc,omitempty"`
}

func (Project) TableName() string { return "project" }

// MarketRequirement is one line of a project's shopping list.
type MarketRequirement struct {
	ProjectID         uuid.UUID  `gorm:"column:project_id;type:uuid;primaryKey" json:"project_id"`
	TypeID            int32      `gorm:"column:type_id;primaryKey" json:"type_id"`
	Quantity          int64      `gorm:"column:quantity;not null" json:"quantity"`
	SourceStructureID *uuid.UUID `gorm:"column:source_structure_id;type:uuid" json:"source_structure_id,omitempty"`
	Cost              *float64   `gorm:"column:cost" json:"cost,omitempty"`
}

func (MarketRequirement) TableName() string { return "project_market_requirement" }

// ProjectStock is pre-existing inventory credited against requirements.
type ProjectStock struct {
	ProjectID uuid.UUID `gorm:"column:project_id;type:uuid;primaryKey" json:"project_id"`
	TypeID    int32     `gorm:"column:type_id;primaryKey" json:"type_id"`
	Quantity  int64     `gorm:"column:quantity;not null" json:"quantity"`
	Cost      *float64  `gorm:"column:cost" json:"cost,omitempty"`
}

func (ProjectStock) TableName() string { return "project_stock" }

// ProjectExcess is surplus produced by run-rounding.
type ProjectExcess struct {
	ProjectID uuid.UUID `gorm:"column:project_id;type:uuid;primaryKey" json:"project_id"`
	TypeID    int32     `gorm:"column:type_id;primaryKey" json:"type_id"`
	Quantity  int64     `gorm:"column:quantity;not null" json:"quantity"`
	Cost      *float64  `gorm:"column:cost" json:"cost,omitempty"`
}

func (ProjectExcess) TableName() string { return "project_excess" }

// ProjectMisc is a user-entered free-form cost line.
type ProjectMisc struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID   uuid.UUID `gorm:"column:project_id;type:uuid;not null;index" json:"project_id"`
	Description string    `gorm:"column:description;not null" json:"description"`
	Quantity    int64     `gorm:"column:quantity;not null;default:1" json:"quantity"`
	Cost        *float64  `gorm:"column:cost" json:"cost,omitempty"`
}

func (ProjectMisc) TableName() string { return "project_misc" }
