package industry

import "github.com/google/uuid"

// StructureDescriptor is the engine's view of one candidate structure.
type StructureDescriptor struct {
	ID          uuid.UUID
	StructureID int64
	SystemID    int64
	TypeID      int32
	Rigs        []int32
	Services    []int32
}

// CategoryGroup pins a product category and/or group. Zero means "any".
type CategoryGroup struct {
	CategoryID int32
	GroupID    int32
}

// Matches reports whether the pin covers the given product classification.
func (cg CategoryGroup) Matches(categoryID, groupID int32) bool {
	if cg.CategoryID != 0 && cg.CategoryID != categoryID {
		return false
	}
	if cg.GroupID != 0 && cg.GroupID != groupID {
		return false
	}
	return cg.CategoryID != 0 || cg.GroupID != 0
}

// StructureMapping routes products of a category/group to a structure,
// overriding rig-bonus based selection.
type StructureMapping struct {
	StructureID uuid.UUID
	CategoryGroup
}

// Default service module type ids that mark a structure as hosting an
// activity. Callers can override per config.
var (
	DefaultManufacturingServices = []int32{35878, 35881, 35886}
	DefaultReactionServices      = []int32{45537, 45538, 45539}
)

// Default intrinsic material bonus (percent) per structure type, applied on
// top of rig bonuses. Engineering complexes grant 1%.
var DefaultStructureTypeBonuses = map[int32]float64{
	35825: 1, // Raitaru
	35826: 1, // Azbel
	35827: 1, // Sotiyo
}

// ProjectConfig drives one build_plan invocation.
type ProjectConfig struct {
	Structures            []StructureDescriptor
	StructureMappings     []StructureMapping
	MaterialOverwrites    map[int32]float64 // blueprint type id -> ME percent
	RunPolicies           map[int32]int32   // blueprint type id -> max runs per job cap
	SkipChildren          bool
	FacilityTax           float64 // fraction, e.g. 0.01
	RoleTax               float64 // fraction
	ManufacturingServices []int32
	ReactionServices      []int32
	StructureTypeBonuses  map[int32]float64
}

// ConfigBuilder builds a ProjectConfig. Defaults: skip_children=false, no
// overwrites, default service sets and intrinsic bonuses.
type ConfigBuilder struct {
	cfg ProjectConfig
}

func NewConfig() *ConfigBuilder {
	return &ConfigBuilder{cfg: ProjectConfig{
		MaterialOverwrites:    map[int32]float64{},
		RunPolicies:           map[int32]int32{},
		ManufacturingServices: DefaultManufacturingServices,
		ReactionServices:      DefaultReactionServices,
		StructureTypeBonuses:  DefaultStructureTypeBonuses,
	}}
}

func (b *ConfigBuilder) WithStructures(structures ...StructureDescriptor) *ConfigBuilder {
	b.cfg.Structures = append(b.cfg.Structures, structures...)
	return b
}

func (b *ConfigBuilder) WithMapping(structureID uuid.UUID, pin CategoryGroup) *ConfigBuilder {
	b.cfg.StructureMappings = append(b.cfg.StructureMappings, StructureMapping{
		StructureID:   structureID,
		CategoryGroup: pin,
	})
	return b
}

func (b *ConfigBuilder) WithMaterialOverwrite(blueprintTypeID int32, mePercent float64) *ConfigBuilder {
	b.cfg.MaterialOverwrites[blueprintTypeID] = mePercent
	return b
}

func (b *ConfigBuilder) WithRunPolicy(blueprintTypeID int32, maxRunsPerJob int32) *ConfigBuilder {
	b.cfg.RunPolicies[blueprintTypeID] = maxRunsPerJob
	return b
}

func (b *ConfigBuilder) SkipChildren(skip bool) *ConfigBuilder {
	b.cfg.SkipChildren = skip
	return b
}

func (b *ConfigBuilder) WithTaxes(facilityTax, roleTax float64) *ConfigBuilder {
	b.cfg.FacilityTax = facilityTax
	b.cfg.RoleTax = roleTax
	return b
}

func (b *ConfigBuilder) WithStructureTypeBonus(typeID int32, materialPercent float64) *ConfigBuilder {
	if b.cfg.StructureTypeBonuses == nil {
		b.cfg.StructureTypeBonuses = map[int32]float64{}
	}
	b.cfg.StructureTypeBonuses[typeID] = materialPercent
	return b
}

func (b *ConfigBuilder) Build() ProjectConfig { return b.cfg }
