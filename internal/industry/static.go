package industry

import "github.com/evetools/indy/internal/types"

// StaticData is the read-only slice of the static store the engine needs.
// *sde.Store satisfies it; tests supply fixtures.
type StaticData interface {
	// BlueprintForProduct returns the canonical blueprint producing the
	// given type, materials populated. Canonical means lowest blueprint
	// type id when several produce the same output.
	BlueprintForProduct(typeID int32) (*types.Blueprint, bool)
	Item(typeID int32) (*types.Item, bool)
	Rig(typeID int32) (*types.RigDogma, bool)
	AdjustedPrice(typeID int32) (float64, bool)
}

// CostIndices resolves the most recent per-system cost index for an
// activity. Implementations read the industry index snapshot table.
type CostIndices interface {
	CostIndex(systemID int64, activity string) (float64, bool)
}
