package sde

import (
	"testing"

	"github.com/evetools/indy/internal/types"
)

func price(v float64) *float64 { return &v }

func TestCanonicalBlueprintIsLowestTypeID(t *testing.T) {
	store := NewFixture(
		nil,
		[]types.Blueprint{
			{TypeID: 300, ProductTypeID: 34, ProductQuantity: 1, Activity: types.ActivityManufacturing},
			{TypeID: 100, ProductTypeID: 34, ProductQuantity: 1, Activity: types.ActivityManufacturing},
			{TypeID: 200, ProductTypeID: 34, ProductQuantity: 1, Activity: types.ActivityManufacturing},
		},
		nil,
	)
	bp, ok := store.BlueprintForProduct(34)
	if !ok {
		t.Fatalf("product not buildable")
	}
	if bp.TypeID != 100 {
		t.Fatalf("canonical blueprint %d, want 100", bp.TypeID)
	}
}

func TestBuildable(t *testing.T) {
	store := NewFixture(
		nil,
		[]types.Blueprint{
			{TypeID: 100, ProductTypeID: 34, ProductQuantity: 1, Activity: types.ActivityManufacturing},
		},
		nil,
	)
	if !store.Buildable(34) {
		t.Fatalf("expected 34 buildable")
	}
	if store.Buildable(35) {
		t.Fatalf("expected 35 not buildable")
	}
}

func TestAdjustedPrice(t *testing.T) {
	store := NewFixture(
		[]types.Item{
			{TypeID: 34, Name: "Tritanium", AdjustedPrice: price(5.5)},
			{TypeID: 35, Name: "Pyerite"},
		},
		nil, nil,
	)
	if p, ok := store.AdjustedPrice(34); !ok || p != 5.5 {
		t.Fatalf("AdjustedPrice(34) = %v, %v", p, ok)
	}
	if _, ok := store.AdjustedPrice(35); ok {
		t.Fatalf("unpriced item returned a price")
	}
	if _, ok := store.AdjustedPrice(99); ok {
		t.Fatalf("unknown item returned a price")
	}
}

func TestItemAndRigLookup(t *testing.T) {
	store := NewFixture(
		[]types.Item{{TypeID: 34, Name: "Tritanium", CategoryID: 4, GroupID: 18}},
		nil,
		[]types.RigDogma{{TypeID: 26074, Modifier: types.ModifierManufactureMaterial, Amount: -2}},
	)
	item, ok := store.Item(34)
	if !ok || item.Name != "Tritanium" {
		t.Fatalf("Item(34) = %+v, %v", item, ok)
	}
	rig, ok := store.Rig(26074)
	if !ok || rig.Modifier != types.ModifierManufactureMaterial {
		t.Fatalf("Rig(26074) = %+v, %v", rig, ok)
	}
	if _, ok := store.Rig(1); ok {
		t.Fatalf("unknown rig returned")
	}
}
