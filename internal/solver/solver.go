package solver

import (
	"sort"
	"time"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
)

// Strategy selects the solve algorithm.
type Strategy string

const (
	// MultiBuy fulfils each type from a single market, greedily.
	MultiBuy Strategy = "MultiBuy"
	// SmartBuy splits each type across markets via a bounded linear program.
	SmartBuy Strategy = "SmartBuy"
)

// Order is one open sell order from the latest market snapshot.
type Order struct {
	OrderID     int64
	StructureID int64
	TypeID      int32
	Remaining   int64
	Price       float64
	Expires     time.Time
	IsBuy       bool
}

// Demand is one required material line.
type Demand struct {
	TypeID   int32
	Quantity int64
}

// Allocation is the per-(market, type) result. Price is the clearing price:
// the maximum over allocated orders at that market.
type Allocation struct {
	StructureID      int64   `json:"source"`
	TypeID           int32   `json:"type_id"`
	Quantity         int64   `json:"quantity"`
	Price            float64 `json:"price"`
	InsufficientData bool    `json:"insufficient_data"`
}

// Solver picks the cheapest set of open sell orders satisfying a demand
// list. It is stateless; the snapshot is passed per call.
type Solver struct {
	log *logger.Logger
}

func New(baseLog *logger.Logger) *Solver {
	return &Solver{log: baseLog.With("service", "MarketSolver")}
}

// Solve dispatches on strategy. Orders are filtered (buy orders and expired
// orders excluded) and sorted by (price, order id) so results are
// deterministic for a given snapshot.
func (s *Solver) Solve(strategy Strategy, demands []Demand, orders []Order, now time.Time) ([]Allocation, error) {
	book := buildBook(orders, now)
	switch strategy {
	case MultiBuy:
		return s.multiBuy(demands, book), nil
	case SmartBuy:
		return s.smartBuy(demands, book), nil
	default:
		return nil, apperror.Validation("unknown strategy %q", strategy)
	}
}

// book groups the usable sell orders per type, price-ascending.
type book map[int32][]Order

func buildBook(orders []Order, now time.Time) book {
	out := book{}
	for _, o := range orders {
		if o.IsBuy {
			continue
		}
		if !o.Expires.After(now) {
			continue
		}
		if o.Remaining <= 0 {
			continue
		}
		out[o.TypeID] = append(out[o.TypeID], o)
	}
	for typeID := range out {
		sort.Slice(out[typeID], func(i, j int) bool {
			a, b := out[typeID][i], out[typeID][j]
			if a.Price != b.Price {
				return a.Price < b.Price
			}
			return a.OrderID < b.OrderID
		})
	}
	return out
}

// sortAllocations orders the final result for stable presentation.
func sortAllocations(allocs []Allocation) []Allocation {
	sort.Slice(allocs, func(i, j int) bool {
		a, b := allocs[i], allocs[j]
		if a.TypeID != b.TypeID {
			return a.TypeID < b.TypeID
		}
		return a.StructureID < b.StructureID
	})
	return allocs
}
