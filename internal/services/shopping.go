package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/repos"
	"github.com/evetools/indy/internal/solver"
	"github.com/evetools/indy/internal/types"
)

// ShoppingResult is one priced shopping list.
type ShoppingResult struct {
	Strategy    solver.Strategy     `json:"strategy"`
	Allocations []solver.Allocation `json:"allocations"`
	TotalCost   float64             `json:"total_cost"`
}

// ShoppingService prices a project's market requirements against the latest
// order snapshot.
type ShoppingService struct {
	log      *logger.Logger
	solver   *solver.Solver
	projects repos.ProjectRepo
	orders   repos.MarketOrderRepo
}

func NewShoppingService(baseLog *logger.Logger, slv *solver.Solver, projects repos.ProjectRepo, orders repos.MarketOrderRepo) *ShoppingService {
	return &ShoppingService{
		log:      baseLog.With("service", "ShoppingService"),
		solver:   slv,
		projects: projects,
		orders:   orders,
	}
}

// Price solves the project's open requirements. Stock is credited against
// requirements before solving; markets restricts the snapshot to the given
// game structure ids when non-empty.
func (s *ShoppingService) Price(ctx context.Context, ownerID int64, projectID uuid.UUID, strategy solver.Strategy, markets []int64) (*ShoppingResult, error) {
	if _, err := s.projects.GetByIDForOwner(ctx, nil, projectID, ownerID); err != nil {
		return nil, err
	}
	requirements, err := s.projects.ListRequirements(ctx, nil, projectID)
	if err != nil {
		return nil, err
	}
	stock, err := s.projects.ListStock(ctx, nil, projectID)
	if err != nil {
		return nil, err
	}
	stocked := make(map[int32]int64, len(stock))
	for _, row := range stock {
		stocked[row.TypeID] += row.Quantity
	}

	var demands []solver.Demand
	var typeIDs []int32
	for _, req := range requirements {
		remaining := req.Quantity - stocked[req.TypeID]
		if remaining <= 0 {
			continue
		}
		demands = append(demands, solver.Demand{TypeID: req.TypeID, Quantity: remaining})
		typeIDs = append(typeIDs, req.TypeID)
	}
	if len(demands) == 0 {
		return &ShoppingResult{Strategy: strategy}, nil
	}

	now := time.Now().UTC()
	rows, err := s.orders.OpenSellOrders(ctx, nil, markets, typeIDs, now)
	if err != nil {
		return nil, err
	}
	book := make([]solver.Order, 0, len(rows))
	for _, row := range rows {
		book = append(book, solver.Order{
			OrderID:     row.OrderID,
			StructureID: row.StructureID,
			TypeID:      row.TypeID,
			Remaining:   row.Remaining,
			Price:       row.Price,
			Expires:     row.Expires,
			IsBuy:       row.IsBuy,
		})
	}

	allocations, err := s.solver.Solve(strategy, demands, book, now)
	if err != nil {
		return nil, err
	}

	result := &ShoppingResult{Strategy: strategy, Allocations: allocations}
	perType := map[int32]float64{}
	for _, a := range allocations {
		cost := float64(a.Quantity) * a.Price
		result.TotalCost += cost
		perType[a.TypeID] += cost
	}

	// Persist the quote onto the requirement lines so project totals pick
	// it up without re-solving.
	updated := make([]types.MarketRequirement, 0, len(requirements))
	for _, req := range requirements {
		if cost, priced := perType[req.TypeID]; priced {
			c := cost
			req.Cost = &c
		}
		updated = append(updated, req)
	}
	if err := s.projects.ReplaceRequirements(ctx, nil, projectID, updated); err != nil {
		return nil, err
	}
	return result, nil
}

// ValidStrategy parses the wire strategy name.
func ValidStrategy(raw string) (solver.Strategy, error) {
	switch solver.Strategy(raw) {
	case solver.MultiBuy, solver.SmartBuy:
		return solver.Strategy(raw), nil
	case "":
		return solver.MultiBuy, nil
	default:
		return "", apperror.Validation("unknown strategy %q", raw)
	}
}
