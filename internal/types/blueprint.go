package types

// Blueprint activity kinds. A blueprint row carries exactly one activity;
// the SDE import writes one row per (blueprint, activity).
const (
	ActivityManufacturing = "manufacturing"
	ActivityReaction      = "reaction"
)

// Blueprint is one producible recipe from the SDE import. Many blueprints
// may produce the same product type; the canonical one is the lowest
// blueprint type id.
type Blueprint struct {
	TypeID          int32  `gorm:"column:type_id;primaryKey" json:"type_id"`
	ProductTypeID   int32  `gorm:"column:product_type_id;not null;index" json:"product_type_id"`
	ProductQuantity int32  `gorm:"column:product_quantity;not null;default:1" json:"product_quantity"`
	Activity        string `gorm:"column:activity;not null" json:"activity"`
	BaseTime        int32  `gorm:"column:base_time;not null" json:"base_time"`
	MaxRuns         *int32 `gorm:"column:max_runs" json:"max_runs,omitempty"`

	Materials []BlueprintMaterial `gorm:"constraint:OnDelete:CASCADE;foreignKey:BlueprintTypeID;references:TypeID" json:"materials,omitempty"`
}

func (Blueprint) TableName() string { return "blueprint" }

// BlueprintMaterial is a single input line of a blueprint activity.
type BlueprintMaterial struct {
	BlueprintTypeID int32 `gorm:"column:blueprint_type_id;primaryKey" json:"blueprint_type_id"`
	MaterialTypeID  int32 `gorm:"column:material_type_id;primaryKey" json:"material_type_id"`
	Quantity        int64 `gorm:"column:quantity;not null" json:"quantity"`
	Probabilistic   bool  `gorm:"column:probabilistic;not null;default:false" json:"probabilistic"`
}

func (BlueprintMaterial) TableName() string { return "blueprint_material" }
