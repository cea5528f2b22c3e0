package industry_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/industry"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/sde"
	"github.com/evetools/indy/internal/types"
)

func ptr[T any](v T) *T { return &v }

// fixedIndices implements industry.CostIndices with a flat index.
type fixedIndices struct {
	manufacturing float64
	known         bool
}

func (f fixedIndices) CostIndex(systemID int64, activity string) (float64, bool) {
	if !f.known {
		return 0, false
	}
	return f.manufacturing, true
}

const (
	moduleType    int32 = 2048
	moduleBP      int32 = 2049
	mineralType   int32 = 34
	materialRig   int32 = 26074
	offTargetRig  int32 = 26075
	structureType int32 = 35832
)

func moduleStore() *sde.Store {
	return sde.NewFixture(
		[]types.Item{
			{TypeID: moduleType, Name: "Damage Control II", CategoryID: 7, GroupID: 60},
			{TypeID: mineralType, Name: "Tritanium", CategoryID: 4, GroupID: 18, AdjustedPrice: ptr(5.0)},
		},
		[]types.Blueprint{
			{
				TypeID:          moduleBP,
				ProductTypeID:   moduleType,
				ProductQuantity: 1,
				Activity:        types.ActivityManufacturing,
				BaseTime:        600,
				MaxRuns:         ptr(int32(20)),
				Materials: []types.BlueprintMaterial{
					{BlueprintTypeID: moduleBP, MaterialTypeID: mineralType, Quantity: 100},
				},
			},
		},
		[]types.RigDogma{
			{TypeID: materialRig, Modifier: types.ModifierManufactureMaterial, Amount: -10, Categories: []int32{7}},
			{TypeID: offTargetRig, Modifier: types.ModifierManufactureMaterial, Amount: -10, Categories: []int32{99}},
		},
	)
}

func moduleConfig(structureID uuid.UUID, rigs []int32) industry.ProjectConfig {
	return industry.NewConfig().
		WithStructures(industry.StructureDescriptor{
			ID:          structureID,
			StructureID: 1001,
			SystemID:    30000142,
			TypeID:      structureType,
			Rigs:        rigs,
			Services:    []int32{35878},
		}).
		Build()
}

func TestBuildPlanModuleWithMaterialRig(t *testing.T) {
	store := moduleStore()
	engine := industry.NewEngine(store, fixedIndices{manufacturing: 0.05, known: true}, logger.Nop())
	structureID := uuid.New()

	plan, err := engine.BuildPlan(
		industry.Request{ProductTypeID: moduleType, Runs: 10},
		moduleConfig(structureID, []int32{materialRig}),
	)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}

	if len(plan.Jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(plan.Jobs))
	}
	job := plan.Jobs[0]
	if job.Runs != 10 {
		t.Fatalf("expected 10 runs, got %d", job.Runs)
	}
	if job.StructureID != structureID {
		t.Fatalf("job landed on wrong structure")
	}
	// 100 per run * 10 runs * 0.9 material rig.
	if got := job.Materials[mineralType]; got != 900 {
		t.Fatalf("expected 900 minerals, got %d", got)
	}
	if got := plan.Bill[mineralType]; got != 900 {
		t.Fatalf("expected bill of 900 minerals, got %d", got)
	}
	if plan.Cost.MaterialCost != 900*5.0 {
		t.Fatalf("expected material cost 4500, got %v", plan.Cost.MaterialCost)
	}
	// index 0.05 * base job cost (100 * 5.0) * 10 runs.
	if diff := plan.Cost.InstallationCost - 250; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("unexpected installation cost %v", plan.Cost.InstallationCost)
	}
	if plan.Cost.Warning {
		t.Fatalf("unexpected cost warning: %+v", plan.Cost)
	}
}

func TestBuildPlanSplitsRunsRemainderLast(t *testing.T) {
	store := moduleStore()
	engine := industry.NewEngine(store, fixedIndices{}, logger.Nop())
	structureID := uuid.New()

	cfg := industry.NewConfig().
		WithStructures(industry.StructureDescriptor{
			ID:          structureID,
			StructureID: 1001,
			SystemID:    30000142,
			TypeID:      structureType,
			Rigs:        []int32{materialRig},
			Services:    []int32{35878},
		}).
		WithRunPolicy(moduleBP, 10).
		Build()

	plan, err := engine.BuildPlan(industry.Request{ProductTypeID: moduleType, Runs: 25}, cfg)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}

	if len(plan.Jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(plan.Jobs))
	}
	wantRuns := []int32{10, 10, 5}
	var total int64
	for i, job := range plan.Jobs {
		if job.Runs != wantRuns[i] {
			t.Fatalf("job %d: expected %d runs, got %d", i, wantRuns[i], job.Runs)
		}
		total += job.Materials[mineralType]
	}
	// Per-job ceil: 900 + 900 + 450.
	if total != 2250 {
		t.Fatalf("expected 2250 minerals across jobs, got %d", total)
	}
	if plan.Bill[mineralType] != 2250 {
		t.Fatalf("bill mismatch: %d", plan.Bill[mineralType])
	}
}

func TestBuildPlanDeterministic(t *testing.T) {
	store := moduleStore()
	engine := industry.NewEngine(store, fixedIndices{manufacturing: 0.05, known: true}, logger.Nop())
	cfg := moduleConfig(uuid.New(), []int32{materialRig})
	req := industry.Request{ProductTypeID: moduleType, Runs: 10}

	first, err := engine.BuildPlan(req, cfg)
	if err != nil {
		t.Fatalf("first BuildPlan: %v", err)
	}
	second, err := engine.BuildPlan(req, cfg)
	if err != nil {
		t.Fatalf("second BuildPlan: %v", err)
	}
	if !reflect.DeepEqual(first.Jobs, second.Jobs) {
		t.Fatalf("same input produced different jobs")
	}
	if !reflect.DeepEqual(first.Bill, second.Bill) {
		t.Fatalf("same input produced different bills")
	}
}

func TestBuildPlanBillMonotonicInRuns(t *testing.T) {
	store := moduleStore()
	engine := industry.NewEngine(store, fixedIndices{}, logger.Nop())
	cfg := moduleConfig(uuid.New(), []int32{materialRig})

	small, err := engine.BuildPlan(industry.Request{ProductTypeID: moduleType, Runs: 5}, cfg)
	if err != nil {
		t.Fatalf("BuildPlan runs=5: %v", err)
	}
	large, err := engine.BuildPlan(industry.Request{ProductTypeID: moduleType, Runs: 10}, cfg)
	if err != nil {
		t.Fatalf("BuildPlan runs=10: %v", err)
	}
	for typeID, qty := range small.Bill {
		if large.Bill[typeID] < qty {
			t.Fatalf("bill for %d shrank from %d to %d when runs grew", typeID, qty, large.Bill[typeID])
		}
	}
}

func TestBuildPlanUnbuildableType(t *testing.T) {
	store := moduleStore()
	engine := industry.NewEngine(store, fixedIndices{}, logger.Nop())

	_, err := engine.BuildPlan(
		industry.Request{ProductTypeID: 999999, Runs: 1},
		moduleConfig(uuid.New(), []int32{materialRig}),
	)
	if !errors.Is(err, apperror.ErrUnbuildableType) {
		t.Fatalf("expected ErrUnbuildableType, got %v", err)
	}
}

func TestBuildPlanNoEligibleStructure(t *testing.T) {
	store := moduleStore()
	engine := industry.NewEngine(store, fixedIndices{}, logger.Nop())

	// Only rig installed does not cover category 7.
	_, err := engine.BuildPlan(
		industry.Request{ProductTypeID: moduleType, Runs: 1},
		moduleConfig(uuid.New(), []int32{offTargetRig}),
	)
	if !errors.Is(err, apperror.ErrNoEligibleStructure) {
		t.Fatalf("expected ErrNoEligibleStructure, got %v", err)
	}
}

func TestBuildPlanRejectsZeroRuns(t *testing.T) {
	store := moduleStore()
	engine := industry.NewEngine(store, fixedIndices{}, logger.Nop())

	_, err := engine.BuildPlan(
		industry.Request{ProductTypeID: moduleType, Runs: 0},
		moduleConfig(uuid.New(), []int32{materialRig}),
	)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildPlanCycleDetected(t *testing.T) {
	store := sde.NewFixture(
		[]types.Item{
			{TypeID: 10, Name: "Alpha", CategoryID: 7, GroupID: 60},
			{TypeID: 20, Name: "Beta", CategoryID: 7, GroupID: 60},
		},
		[]types.Blueprint{
			{TypeID: 11, ProductTypeID: 10, ProductQuantity: 1, Activity: types.ActivityManufacturing,
				Materials: []types.BlueprintMaterial{{BlueprintTypeID: 11, MaterialTypeID: 20, Quantity: 1}}},
			{TypeID: 21, ProductTypeID: 20, ProductQuantity: 1, Activity: types.ActivityManufacturing,
				Materials: []types.BlueprintMaterial{{BlueprintTypeID: 21, MaterialTypeID: 10, Quantity: 1}}},
		},
		[]types.RigDogma{
			{TypeID: materialRig, Modifier: types.ModifierManufactureMaterial, Amount: -10, Categories: []int32{7}},
		},
	)
	engine := industry.NewEngine(store, fixedIndices{}, logger.Nop())

	_, err := engine.BuildPlan(
		industry.Request{ProductTypeID: 10, Runs: 1},
		moduleConfig(uuid.New(), []int32{materialRig}),
	)
	if !errors.Is(err, apperror.ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
}

func TestBuildPlanExcessFromProductQuantity(t *testing.T) {
	// Intermediate produced in batches of 10; demand of 25 forces 3 runs
	// and 5 units of excess.
	store := sde.NewFixture(
		[]types.Item{
			{TypeID: 10, Name: "Composite", CategoryID: 7, GroupID: 60},
			{TypeID: 20, Name: "Intermediate", CategoryID: 7, GroupID: 61},
			{TypeID: 30, Name: "Gas", CategoryID: 4, GroupID: 18},
		},
		[]types.Blueprint{
			{TypeID: 11, ProductTypeID: 10, ProductQuantity: 1, Activity: types.ActivityManufacturing,
				Materials: []types.BlueprintMaterial{{BlueprintTypeID: 11, MaterialTypeID: 20, Quantity: 25}}},
			{TypeID: 21, ProductTypeID: 20, ProductQuantity: 10, Activity: types.ActivityManufacturing,
				Materials: []types.BlueprintMaterial{{BlueprintTypeID: 21, MaterialTypeID: 30, Quantity: 50}}},
		},
		[]types.RigDogma{
			{TypeID: materialRig, Modifier: types.ModifierManufactureMaterial, Amount: -10, Categories: []int32{7}},
		},
	)
	engine := industry.NewEngine(store, fixedIndices{}, logger.Nop())

	plan, err := engine.BuildPlan(
		industry.Request{ProductTypeID: 10, Runs: 1},
		moduleConfig(uuid.New(), []int32{materialRig}),
	)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	// ceil(25 * 1 * 0.9) = 23 intermediates demanded, 3 runs produce 30.
	if got := plan.Excess[20]; got != 7 {
		t.Fatalf("expected 7 excess intermediates, got %d", got)
	}
	// Children jobs precede parents.
	if len(plan.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(plan.Jobs))
	}
	if plan.Jobs[0].TypeID != 20 || plan.Jobs[1].TypeID != 10 {
		t.Fatalf("jobs out of dependency order: %v, %v", plan.Jobs[0].TypeID, plan.Jobs[1].TypeID)
	}
}

func TestBuildPlanSkipChildrenBuysIntermediates(t *testing.T) {
	store := sde.NewFixture(
		[]types.Item{
			{TypeID: 10, Name: "Composite", CategoryID: 7, GroupID: 60},
			{TypeID: 20, Name: "Intermediate", CategoryID: 7, GroupID: 61},
			{TypeID: 30, Name: "Gas", CategoryID: 4, GroupID: 18},
		},
		[]types.Blueprint{
			{TypeID: 11, ProductTypeID: 10, ProductQuantity: 1, Activity: types.ActivityManufacturing,
				Materials: []types.BlueprintMaterial{{BlueprintTypeID: 11, MaterialTypeID: 20, Quantity: 25}}},
			{TypeID: 21, ProductTypeID: 20, ProductQuantity: 10, Activity: types.ActivityManufacturing,
				Materials: []types.BlueprintMaterial{{BlueprintTypeID: 21, MaterialTypeID: 30, Quantity: 50}}},
		},
		[]types.RigDogma{
			{TypeID: materialRig, Modifier: types.ModifierManufactureMaterial, Amount: -10, Categories: []int32{7}},
		},
	)
	engine := industry.NewEngine(store, fixedIndices{}, logger.Nop())

	structureID := uuid.New()
	cfg := industry.NewConfig().
		WithStructures(industry.StructureDescriptor{
			ID:          structureID,
			StructureID: 1001,
			SystemID:    30000142,
			TypeID:      structureType,
			Rigs:        []int32{materialRig},
			Services:    []int32{35878},
		}).
		SkipChildren(true).
		Build()

	plan, err := engine.BuildPlan(industry.Request{ProductTypeID: 10, Runs: 1}, cfg)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Jobs) != 1 {
		t.Fatalf("expected only the root job, got %d jobs", len(plan.Jobs))
	}
	if got := plan.Bill[20]; got != 23 {
		t.Fatalf("expected 23 intermediates on the bill, got %d", got)
	}
}

func TestBuildPlanMaterialOverwrite(t *testing.T) {
	store := moduleStore()
	engine := industry.NewEngine(store, fixedIndices{}, logger.Nop())
	structureID := uuid.New()

	cfg := industry.NewConfig().
		WithStructures(industry.StructureDescriptor{
			ID:          structureID,
			StructureID: 1001,
			SystemID:    30000142,
			TypeID:      structureType,
			Rigs:        []int32{materialRig},
			Services:    []int32{35878},
		}).
		WithMaterialOverwrite(moduleBP, 10).
		Build()

	plan, err := engine.BuildPlan(industry.Request{ProductTypeID: moduleType, Runs: 10}, cfg)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	// 100 per run * 10 runs * 0.9 rig * 0.9 overwrite.
	if got := plan.Bill[mineralType]; got != 810 {
		t.Fatalf("expected 810 minerals with overwrite, got %d", got)
	}
}

func TestBuildPlanCostDegradesOnMissingData(t *testing.T) {
	// No adjusted price on the mineral and no index anywhere: the plan still
	// succeeds with a flagged cost summary.
	store := sde.NewFixture(
		[]types.Item{
			{TypeID: moduleType, Name: "Damage Control II", CategoryID: 7, GroupID: 60},
			{TypeID: mineralType, Name: "Tritanium", CategoryID: 4, GroupID: 18},
		},
		[]types.Blueprint{
			{
				TypeID:          moduleBP,
				ProductTypeID:   moduleType,
				ProductQuantity: 1,
				Activity:        types.ActivityManufacturing,
				MaxRuns:         ptr(int32(20)),
				Materials: []types.BlueprintMaterial{
					{BlueprintTypeID: moduleBP, MaterialTypeID: mineralType, Quantity: 100},
				},
			},
		},
		[]types.RigDogma{
			{TypeID: materialRig, Modifier: types.ModifierManufactureMaterial, Amount: -10, Categories: []int32{7}},
		},
	)
	engine := industry.NewEngine(store, fixedIndices{}, logger.Nop())

	plan, err := engine.BuildPlan(
		industry.Request{ProductTypeID: moduleType, Runs: 10},
		moduleConfig(uuid.New(), []int32{materialRig}),
	)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if !plan.Cost.Warning {
		t.Fatalf("expected cost warning")
	}
	if len(plan.Cost.MissingPrices) != 1 || plan.Cost.MissingPrices[0] != mineralType {
		t.Fatalf("unexpected missing prices %v", plan.Cost.MissingPrices)
	}
	if len(plan.Cost.MissingIndices) != 1 {
		t.Fatalf("unexpected missing indices %v", plan.Cost.MissingIndices)
	}
	if plan.Cost.MaterialCost != 0 || plan.Cost.InstallationCost != 0 {
		t.Fatalf("missing data should contribute zero, got %+v", plan.Cost)
	}
}

func TestBuildPlanMappingPinsStructure(t *testing.T) {
	store := moduleStore()
	engine := industry.NewEngine(store, fixedIndices{}, logger.Nop())

	bonusedID := uuid.New()
	pinnedID := uuid.New()
	cfg := industry.NewConfig().
		WithStructures(
			industry.StructureDescriptor{
				ID: bonusedID, StructureID: 1001, SystemID: 30000142, TypeID: structureType,
				Rigs: []int32{materialRig}, Services: []int32{35878},
			},
			industry.StructureDescriptor{
				ID: pinnedID, StructureID: 1002, SystemID: 30000142, TypeID: structureType,
				Rigs: []int32{materialRig}, Services: []int32{35878},
			},
		).
		WithMapping(pinnedID, industry.CategoryGroup{CategoryID: 7}).
		Build()

	plan, err := engine.BuildPlan(industry.Request{ProductTypeID: moduleType, Runs: 1}, cfg)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if plan.Jobs[0].StructureID != pinnedID {
		t.Fatalf("mapping ignored: job landed on %s", plan.Jobs[0].StructureID)
	}
}
