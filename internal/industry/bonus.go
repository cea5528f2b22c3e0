package industry

import (
	"github.com/evetools/indy/internal/types"
)

// rigApplies reports whether a rig's category/group set covers the product.
func rigApplies(rig *types.RigDogma, categoryID, groupID int32) bool {
	for _, g := range rig.Groups {
		if g == groupID {
			return true
		}
	}
	for _, c := range rig.Categories {
		if c == categoryID {
			return true
		}
	}
	return false
}

func materialModifier(activity string) string {
	if activity == types.ActivityReaction {
		return types.ModifierReactionMaterial
	}
	return types.ModifierManufactureMaterial
}

func timeModifier(activity string) string {
	if activity == types.ActivityReaction {
		return types.ModifierReactionTime
	}
	return types.ModifierManufactureTime
}

// hostsActivity reports whether the structure's installed services include
// one that hosts the blueprint's activity kind.
func hostsActivity(cfg *ProjectConfig, s *StructureDescriptor, activity string) bool {
	wanted := cfg.ManufacturingServices
	if activity == types.ActivityReaction {
		wanted = cfg.ReactionServices
	}
	for _, installed := range s.Services {
		for _, w := range wanted {
			if installed == w {
				return true
			}
		}
	}
	return false
}

// structureBonuses holds the material and time percentages one structure
// grants a specific product.
type structureBonuses struct {
	materialMultiplier float64 // product of (1 - |pct|/100) over applicable rigs and intrinsic bonus
	materialPercent    float64 // sum of |pct| over applicable material rigs, for ranking
	timePercent        float64 // sum of |pct| over applicable time rigs, for ranking
	matched            bool    // at least one installed rig covers the product
}

// bonusesFor derives the structure's bonus set for a product. Rigs of the
// same modifier kind compose multiplicatively, never additively.
func bonusesFor(cfg *ProjectConfig, data StaticData, s *StructureDescriptor, activity string, categoryID, groupID int32) structureBonuses {
	out := structureBonuses{materialMultiplier: 1}
	matKind := materialModifier(activity)
	timeKind := timeModifier(activity)

	for _, rigType := range s.Rigs {
		rig, ok := data.Rig(rigType)
		if !ok {
			continue
		}
		if !rigApplies(rig, categoryID, groupID) {
			continue
		}
		pct := rig.Amount
		if pct < 0 {
			pct = -pct
		}
		switch rig.Modifier {
		case matKind:
			out.matched = true
			out.materialPercent += pct
			out.materialMultiplier *= 1 - pct/100
		case timeKind:
			out.matched = true
			out.timePercent += pct
		}
	}

	if intrinsic, ok := cfg.StructureTypeBonuses[s.TypeID]; ok && intrinsic > 0 {
		out.materialMultiplier *= 1 - intrinsic/100
	}
	return out
}

// selectStructure picks the structure for a product deterministically:
// mappings pin first; otherwise the eligible structure maximising
// material% + time%/2, ties broken by lowest in-game structure id.
func selectStructure(cfg *ProjectConfig, data StaticData, activity string, categoryID, groupID int32) (*StructureDescriptor, structureBonuses, bool) {
	// A mapping that covers the product overrides rig-based selection.
	for _, m := range cfg.StructureMappings {
		if !m.Matches(categoryID, groupID) {
			continue
		}
		for i := range cfg.Structures {
			s := &cfg.Structures[i]
			if s.ID != m.StructureID {
				continue
			}
			if !hostsActivity(cfg, s, activity) {
				continue
			}
			return s, bonusesFor(cfg, data, s, activity, categoryID, groupID), true
		}
	}

	var best *StructureDescriptor
	var bestBonus structureBonuses
	var bestScore float64
	for i := range cfg.Structures {
		s := &cfg.Structures[i]
		if !hostsActivity(cfg, s, activity) {
			continue
		}
		b := bonusesFor(cfg, data, s, activity, categoryID, groupID)
		if !b.matched {
			continue
		}
		score := b.materialPercent + b.timePercent/2
		if best == nil || score > bestScore || (score == bestScore && s.StructureID < best.StructureID) {
			best = s
			bestBonus = b
			bestScore = score
		}
	}
	if best == nil {
		return nil, structureBonuses{}, false
	}
	return best, bestBonus, true
}
