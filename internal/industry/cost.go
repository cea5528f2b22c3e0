package industry

import (
	"sort"

	"github.com/google/uuid"
)

// CostSummary is the rolled-up cost estimate for a plan. Missing prices and
// indices never fail the plan; they are reported here and contribute zero.
type CostSummary struct {
	MaterialCost     float64
	InstallationCost float64
	Total            float64
	MissingPrices    []int32
	MissingIndices   []int64
	Warning          bool
}

// estimateCost fills plan.Cost and the per-job installation costs.
//
// Leaf materials are priced at the latest adjusted price. A job's
// installation cost is
//
//	system_cost_index * base_job_cost * (1 - facility_tax) * (1 + role_tax) * runs
//
// where base_job_cost is the adjusted-price value of one run's base
// materials.
func (e *Engine) estimateCost(plan *PlanResult, cfg *ProjectConfig) {
	missingPrices := map[int32]bool{}
	missingIndices := map[int64]bool{}
	summary := CostSummary{}

	for typeID, qty := range plan.Bill {
		price, ok := e.data.AdjustedPrice(typeID)
		if !ok {
			missingPrices[typeID] = true
			continue
		}
		summary.MaterialCost += price * float64(qty)
	}

	systemByStructure := map[uuid.UUID]int64{}
	for _, s := range cfg.Structures {
		systemByStructure[s.ID] = s.SystemID
	}

	for i := range plan.Jobs {
		job := &plan.Jobs[i]
		bp, ok := e.data.BlueprintForProduct(job.TypeID)
		if !ok {
			continue
		}
		baseJobCost := float64(0)
		for _, mat := range bp.Materials {
			price, ok := e.data.AdjustedPrice(mat.MaterialTypeID)
			if !ok {
				missingPrices[mat.MaterialTypeID] = true
				continue
			}
			baseJobCost += price * float64(mat.Quantity)
		}

		systemID := systemByStructure[job.StructureID]
		var index float64
		found := false
		if e.indices != nil {
			index, found = e.indices.CostIndex(systemID, job.Activity)
		}
		if !found {
			missingIndices[systemID] = true
			summary.Warning = true
			continue
		}
		job.InstallCost = index * baseJobCost * (1 - cfg.FacilityTax) * (1 + cfg.RoleTax) * float64(job.Runs)
		summary.InstallationCost += job.InstallCost
	}

	for typeID := range missingPrices {
		summary.MissingPrices = append(summary.MissingPrices, typeID)
	}
	sort.Slice(summary.MissingPrices, func(i, j int) bool {
		return summary.MissingPrices[i] < summary.MissingPrices[j]
	})
	for systemID := range missingIndices {
		summary.MissingIndices = append(summary.MissingIndices, systemID)
	}
	sort.Slice(summary.MissingIndices, func(i, j int) bool {
		return summary.MissingIndices[i] < summary.MissingIndices[j]
	})
	if len(summary.MissingPrices) > 0 {
		summary.Warning = true
	}

	summary.Total = summary.MaterialCost + summary.InstallationCost
	plan.Cost = summary
}
