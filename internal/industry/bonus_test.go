package industry

import (
	"testing"

	"github.com/evetools/indy/internal/types"
)

func TestRigApplies(t *testing.T) {
	rig := &types.RigDogma{
		TypeID:     26074,
		Modifier:   types.ModifierManufactureMaterial,
		Amount:     -2,
		Categories: []int32{7},
		Groups:     []int32{60},
	}
	cases := []struct {
		name       string
		categoryID int32
		groupID    int32
		want       bool
	}{
		{"category match", 7, 999, true},
		{"group match", 999, 60, true},
		{"both match", 7, 60, true},
		{"no match", 8, 61, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rigApplies(rig, tc.categoryID, tc.groupID); got != tc.want {
				t.Fatalf("rigApplies(%d, %d) = %v, want %v", tc.categoryID, tc.groupID, got, tc.want)
			}
		})
	}
}

func TestMaterialQuantity(t *testing.T) {
	mat := types.BlueprintMaterial{MaterialTypeID: 34, Quantity: 100}
	prob := types.BlueprintMaterial{MaterialTypeID: 34, Quantity: 1, Probabilistic: true}
	cases := []struct {
		name       string
		mat        types.BlueprintMaterial
		runs       int32
		multiplier float64
		overwrite  float64
		want       int64
	}{
		{"no bonuses", mat, 10, 1, 0, 1000},
		{"ten percent rig", mat, 10, 0.9, 0, 900},
		{"rig and overwrite compose", mat, 10, 0.9, 10, 810},
		{"ceil rounds up", types.BlueprintMaterial{MaterialTypeID: 34, Quantity: 7}, 3, 0.9, 0, 19},
		{"floor one per run", types.BlueprintMaterial{MaterialTypeID: 34, Quantity: 1}, 10, 0.5, 0, 10},
		{"probabilistic may drop below runs", prob, 10, 0.5, 0, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := materialQuantity(tc.mat, tc.runs, tc.multiplier, tc.overwrite)
			if got != tc.want {
				t.Fatalf("materialQuantity = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestBonusesComposeMultiplicatively(t *testing.T) {
	data := fixtureData{rigs: map[int32]*types.RigDogma{
		1: {TypeID: 1, Modifier: types.ModifierManufactureMaterial, Amount: -10, Categories: []int32{7}},
		2: {TypeID: 2, Modifier: types.ModifierManufactureMaterial, Amount: -5, Categories: []int32{7}},
	}}
	cfg := NewConfig().Build()
	s := &StructureDescriptor{TypeID: 35832, Rigs: []int32{1, 2}}

	b := bonusesFor(&cfg, data, s, types.ActivityManufacturing, 7, 60)
	if !b.matched {
		t.Fatalf("rigs did not match")
	}
	want := 0.9 * 0.95
	if diff := b.materialMultiplier - want; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("multiplier = %v, want %v", b.materialMultiplier, want)
	}
	if b.materialPercent != 15 {
		t.Fatalf("material percent = %v, want 15", b.materialPercent)
	}
}

func TestIntrinsicStructureBonus(t *testing.T) {
	data := fixtureData{rigs: map[int32]*types.RigDogma{
		1: {TypeID: 1, Modifier: types.ModifierManufactureMaterial, Amount: -10, Categories: []int32{7}},
	}}
	cfg := NewConfig().Build()
	// 35825 carries the default 1% intrinsic bonus.
	s := &StructureDescriptor{TypeID: 35825, Rigs: []int32{1}}

	b := bonusesFor(&cfg, data, s, types.ActivityManufacturing, 7, 60)
	want := 0.9 * 0.99
	if diff := b.materialMultiplier - want; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("multiplier = %v, want %v", b.materialMultiplier, want)
	}
}

// fixtureData is a minimal StaticData for bonus-level tests.
type fixtureData struct {
	rigs map[int32]*types.RigDogma
}

func (f fixtureData) BlueprintForProduct(typeID int32) (*types.Blueprint, bool) { return nil, false }
func (f fixtureData) Item(typeID int32) (*types.Item, bool)                     { return nil, false }
func (f fixtureData) AdjustedPrice(typeID int32) (float64, bool)                { return 0, false }
func (f fixtureData) Rig(typeID int32) (*types.RigDogma, bool) {
	rig, ok := f.rigs[typeID]
	return rig, ok
}
