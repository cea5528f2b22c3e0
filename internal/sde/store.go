package sde

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/types"
)

// Store is an in-memory snapshot of the static data export: items,
// blueprint graph and rig dogma. Pure read; loaded once at boot and shared.
type Store struct {
	items      map[int32]*types.Item
	blueprints map[int32]*types.Blueprint
	byProduct  map[int32]int32 // product type id -> canonical blueprint type id
	rigs       map[int32]*types.RigDogma
}

// Load reads the full static store. Canonical blueprint per product is the
// one with the lowest blueprint type id.
func Load(ctx context.Context, db *gorm.DB, baseLog *logger.Logger) (*Store, error) {
	log := baseLog.With("service", "SdeStore")
	s := &Store{
		items:      map[int32]*types.Item{},
		blueprints: map[int32]*types.Blueprint{},
		byProduct:  map[int32]int32{},
		rigs:       map[int32]*types.RigDogma{},
	}

	var items []types.Item
	if err := db.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	for i := range items {
		s.items[items[i].TypeID] = &items[i]
	}

	var blueprints []types.Blueprint
	if err := db.WithContext(ctx).Preload("Materials").Find(&blueprints).Error; err != nil {
		return nil, fmt.Errorf("load blueprints: %w", err)
	}
	for i := range blueprints {
		bp := &blueprints[i]
		s.blueprints[bp.TypeID] = bp
		if current, ok := s.byProduct[bp.ProductTypeID]; !ok || bp.TypeID < current {
			s.byProduct[bp.ProductTypeID] = bp.TypeID
		}
	}

	var rigs []types.RigDogma
	if err := db.WithContext(ctx).Find(&rigs).Error; err != nil {
		return nil, fmt.Errorf("load rig dogma: %w", err)
	}
	for i := range rigs {
		s.rigs[rigs[i].TypeID] = &rigs[i]
	}

	log.Info("Static store loaded",
		"items", len(s.items), "blueprints", len(s.blueprints), "rigs", len(s.rigs))
	return s, nil
}

// NewFixture builds a store from in-memory rows. Tests use it.
func NewFixture(items []types.Item, blueprints []types.Blueprint, rigs []types.RigDogma) *Store {
	s := &Store{
		items:      map[int32]*types.Item{},
		blueprints: map[int32]*types.Blueprint{},
		byProduct:  map[int32]int32{},
		rigs:       map[int32]*types.RigDogma{},
	}
	for i := range items {
		s.items[items[i].TypeID] = &items[i]
	}
	for i := range blueprints {
		bp := &blueprints[i]
		s.blueprints[bp.TypeID] = bp
		if current, ok := s.byProduct[bp.ProductTypeID]; !ok || bp.TypeID < current {
			s.byProduct[bp.ProductTypeID] = bp.TypeID
		}
	}
	for i := range rigs {
		s.rigs[rigs[i].TypeID] = &rigs[i]
	}
	return s
}

// BlueprintForProduct returns the canonical blueprint producing typeID.
func (s *Store) BlueprintForProduct(typeID int32) (*types.Blueprint, bool) {
	bpID, ok := s.byProduct[typeID]
	if !ok {
		return nil, false
	}
	bp, ok := s.blueprints[bpID]
	return bp, ok
}

func (s *Store) Blueprint(typeID int32) (*types.Blueprint, bool) {
	bp, ok := s.blueprints[typeID]
	return bp, ok
}

func (s *Store) Item(typeID int32) (*types.Item, bool) {
	item, ok := s.items[typeID]
	return item, ok
}

func (s *Store) Rig(typeID int32) (*types.RigDogma, bool) {
	rig, ok := s.rigs[typeID]
	return rig, ok
}

func (s *Store) AdjustedPrice(typeID int32) (float64, bool) {
	item, ok := s.items[typeID]
	if !ok || item.AdjustedPrice == nil {
		return 0, false
	}
	return *item.AdjustedPrice, true
}

// Buildable reports whether any blueprint produces the type.
func (s *Store) Buildable(typeID int32) bool {
	_, ok := s.byProduct[typeID]
	return ok
}
