package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Structure is a player-deployed manufacturing facility. Rigs and Services
// hold installed module type ids as JSON arrays; the structure owns them and
// they go away with the row.
type Structure struct {
	ID          uuid.UUID                    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerID     int64                        `gorm:"column:owner_id;not null;index" json:"owner_id"`
	StructureID int64                        `gorm:"column:structure_id;not null;uniqueIndex" json:"structure_id"`
	Name        string                       `gorm:"column:name;not null" json:"name"`
	SystemID    int64                        `gorm:"column:system_id;not null" json:"system_id"`
	TypeID      int32                        `gorm:"column:type_id;not null" json:"type_id"`
	Rigs        datatypes.JSONSlice[int32]   `gorm:"column:rigs;type:jsonb" json:"rigs"`
	Services    datatypes.JSONSlice[int32]   `gorm:"column:services;type:jsonb" json:"services"`
	CreatedAt   time.Time                    `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time                    `gorm:"not null;default:now()" json:"updated_at"`
}

func (Structure) TableName() string { return "structure" }

// Rig modifier kinds.
const (
	ModifierManufactureMaterial = "manufacture_material"
	ModifierManufactureTime     = "manufacture_time"
	ModifierReactionMaterial    = "reaction_material"
	ModifierReactionTime        = "reaction_time"
)

// RigDogma describes what one rig type does: the modifier kind, a signed
// percentage, and the category/group sets it applies to.
type RigDogma struct {
	TypeID        int32                      `gorm:"column:type_id;primaryKey" json:"type_id"`
	Modifier      string                     `gorm:"column:modifier;not null" json:"modifier"`
	Amount        float64                    `gorm:"column:amount;not null" json:"amount"`
	Categories    datatypes.JSONSlice[int32] `gorm:"column:categories;type:jsonb" json:"categories"`
	Groups        datatypes.JSONSlice[int32] `gorm:"column:groups;type:jsonb" json:"groups"`
	InstallableOn datatypes.JSONSlice[int32] `gorm:"column:installable_on;type:jsonb" json:"installable_on"`
}

func (RigDogma) TableName() string { return "rig_dogma" }
