package industry

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/types"
)

// Engine resolves a build request into sub-jobs, a materials bill and a
// cost estimate. It is pure over its inputs; the only mutable state is the
// in-build plan, which is immutable once returned.
type Engine struct {
	data    StaticData
	indices CostIndices
	log     *logger.Logger
}

func NewEngine(data StaticData, indices CostIndices, baseLog *logger.Logger) *Engine {
	return &Engine{
		data:    data,
		indices: indices,
		log:     baseLog.With("service", "IndustryEngine"),
	}
}

// Request is one top-level build request.
type Request struct {
	ProductTypeID int32
	Runs          int32
}

// Node is one product in the plan tree. The tree is an arena: nodes live in
// PlanResult.Nodes and reference each other by id through
// PlanResult.Children.
type Node struct {
	ID              int
	TypeID          int32
	Name            string
	CategoryID      int32
	GroupID         int32
	Leaf            bool
	BlueprintTypeID int32
	Activity        string
	StructureID     uuid.UUID
	Demand          int64   // units requested by parents (root: runs * product quantity)
	Runs            int32   // total runs decided
	JobRuns         []int32 // per-job split, remainder last
	Produced        int64   // runs * product quantity
	Excess          int64   // produced - demand
	Materials       map[int32]int64   // aggregated over all jobs
	JobMaterials    []map[int32]int64 // parallel to JobRuns
	Depth           int
}

// Job is one emitted production job.
type Job struct {
	Key             string // deterministic: "<type_id>/<ordinal>"
	TypeID          int32
	Name            string
	CategoryID      int32
	GroupID         int32
	BlueprintTypeID int32
	Activity        string
	StructureID     uuid.UUID
	Runs            int32
	Materials       map[int32]int64
	InstallCost     float64
}

// PlanResult is the finalized plan.
type PlanResult struct {
	RootID   int
	Nodes    map[int]*Node
	Children map[int][]int
	Jobs     []Job           // topologically ordered children-first
	Bill     map[int32]int64 // rolled-up leaf material quantities
	Excess   map[int32]int64
	Cost     CostSummary
}

// BuildPlan walks the blueprint dependency graph for the request and
// produces the full plan. Fails with UnbuildableType, NoEligibleStructure
// or CycleDetected; missing prices and indices degrade the cost estimate
// instead of failing.
func (e *Engine) BuildPlan(req Request, cfg ProjectConfig) (*PlanResult, error) {
	if req.Runs < 1 {
		return nil, apperror.Validation("runs must be >= 1, got %d", req.Runs)
	}
	rootBP, ok := e.data.BlueprintForProduct(req.ProductTypeID)
	if !ok {
		return nil, apperror.Map("build_plan",
			fmt.Errorf("type %d: %w", req.ProductTypeID, apperror.ErrUnbuildableType))
	}

	order, err := e.topoOrder(req.ProductTypeID, cfg.SkipChildren)
	if err != nil {
		return nil, err
	}

	plan := &PlanResult{
		Nodes:    map[int]*Node{},
		Children: map[int][]int{},
		Bill:     map[int32]int64{},
		Excess:   map[int32]int64{},
	}
	byType := map[int32]*Node{}
	nextID := 0
	newNode := func(typeID int32, depth int) *Node {
		n := &Node{ID: nextID, TypeID: typeID, Depth: depth, Materials: map[int32]int64{}}
		nextID++
		if item, ok := e.data.Item(typeID); ok {
			n.Name = item.Name
			n.CategoryID = item.CategoryID
			n.GroupID = item.GroupID
		}
		plan.Nodes[n.ID] = n
		byType[typeID] = n
		return n
	}

	root := newNode(req.ProductTypeID, 0)
	root.Demand = int64(req.Runs) * int64(rootBP.ProductQuantity)

	// Parents precede children in order, so every node's demand is final
	// by the time it is processed.
	for _, typeID := range order {
		node, ok := byType[typeID]
		if !ok {
			// Demand never materialized (parent turned out to be a leaf).
			continue
		}
		bp, buildable := e.data.BlueprintForProduct(typeID)
		if !buildable || (cfg.SkipChildren && node.ID != root.ID) {
			node.Leaf = true
			plan.Bill[typeID] += node.Demand
			continue
		}

		structure, bonus, found := selectStructure(&cfg, e.data, bp.Activity, node.CategoryID, node.GroupID)
		if !found {
			return nil, apperror.Map("build_plan",
				fmt.Errorf("type %d: %w", typeID, apperror.ErrNoEligibleStructure))
		}

		node.BlueprintTypeID = bp.TypeID
		node.Activity = bp.Activity
		node.StructureID = structure.ID

		productQty := int64(bp.ProductQuantity)
		if productQty < 1 {
			productQty = 1
		}
		if node.ID == root.ID {
			node.Runs = req.Runs
		} else {
			node.Runs = int32((node.Demand + productQty - 1) / productQty)
		}
		node.Produced = int64(node.Runs) * productQty
		node.Excess = node.Produced - node.Demand
		if node.Excess > 0 {
			plan.Excess[typeID] += node.Excess
		}

		maxRuns := effectiveMaxRuns(bp.MaxRuns, cfg.RunPolicies[bp.TypeID])
		node.JobRuns = SplitRuns(node.Runs, maxRuns)

		overwrite := cfg.MaterialOverwrites[bp.TypeID]
		node.JobMaterials = make([]map[int32]int64, len(node.JobRuns))
		for i := range node.JobRuns {
			node.JobMaterials[i] = map[int32]int64{}
		}
		for _, mat := range bp.Materials {
			var qty int64
			for i, runs := range node.JobRuns {
				jobQty := materialQuantity(mat, runs, bonus.materialMultiplier, overwrite)
				node.JobMaterials[i][mat.MaterialTypeID] = jobQty
				qty += jobQty
			}
			node.Materials[mat.MaterialTypeID] += qty

			child, seen := byType[mat.MaterialTypeID]
			if !seen {
				child = newNode(mat.MaterialTypeID, node.Depth+1)
			} else if node.Depth+1 > child.Depth {
				child.Depth = node.Depth + 1
			}
			child.Demand += qty
			plan.Children[node.ID] = appendUnique(plan.Children[node.ID], child.ID)
		}
	}

	plan.RootID = root.ID
	plan.Jobs = e.emitJobs(plan)
	e.estimateCost(plan, &cfg)
	return plan, nil
}

// materialQuantity applies rig/structure bonuses and the per-blueprint ME
// overwrite for one job. Non-probabilistic materials floor at 1 per run.
func materialQuantity(mat types.BlueprintMaterial, runs int32, multiplier, overwrite float64) int64 {
	effective := multiplier * (1 - overwrite/100)
	qty := int64(math.Ceil(float64(mat.Quantity) * float64(runs) * effective))
	if !mat.Probabilistic && qty < int64(runs) {
		qty = int64(runs)
	}
	return qty
}

// topoOrder returns buildable-reachable types with parents before children,
// failing with CycleDetected if the blueprint graph re-enters a product.
func (e *Engine) topoOrder(rootType int32, skipChildren bool) ([]int32, error) {
	var order []int32
	state := map[int32]int{} // 0 unvisited, 1 on path, 2 done

	var visit func(typeID int32, depth int) error
	visit = func(typeID int32, depth int) error {
		switch state[typeID] {
		case 1:
			return apperror.Map("build_plan",
				fmt.Errorf("type %d: %w", typeID, apperror.ErrCycleDetected))
		case 2:
			return nil
		}
		state[typeID] = 1
		bp, ok := e.data.BlueprintForProduct(typeID)
		if ok && !(skipChildren && depth > 0) {
			for _, mat := range bp.Materials {
				if err := visit(mat.MaterialTypeID, depth+1); err != nil {
					return err
				}
			}
		}
		state[typeID] = 2
		order = append(order, typeID)
		return nil
	}
	if err := visit(rootType, 0); err != nil {
		return nil, err
	}
	// Post-order DFS yields children first; reverse for parents first.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// emitJobs flattens the node arena into the job list: children-first layers
// by depth, each layer ordered by category, group then item name.
func (e *Engine) emitJobs(plan *PlanResult) []Job {
	nodes := make([]*Node, 0, len(plan.Nodes))
	for _, n := range plan.Nodes {
		if !n.Leaf && n.Runs > 0 {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.Depth != b.Depth {
			return a.Depth > b.Depth
		}
		if a.CategoryID != b.CategoryID {
			return a.CategoryID < b.CategoryID
		}
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		return a.Name < b.Name
	})

	var jobs []Job
	for _, n := range nodes {
		for i, runs := range n.JobRuns {
			jobs = append(jobs, Job{
				Key:             fmt.Sprintf("%d/%d", n.TypeID, i),
				TypeID:          n.TypeID,
				Name:            n.Name,
				CategoryID:      n.CategoryID,
				GroupID:         n.GroupID,
				BlueprintTypeID: n.BlueprintTypeID,
				Activity:        n.Activity,
				StructureID:     n.StructureID,
				Runs:            runs,
				Materials:       n.JobMaterials[i],
			})
		}
	}
	return jobs
}

func appendUnique(ids []int, id int) []int {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
