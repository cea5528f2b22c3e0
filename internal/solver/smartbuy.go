package solver

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// smartBuy solves each type as a bounded linear program: one variable per
// open order bounded [0, remaining], total equal to demand, objective the
// total ISK spent. Infeasibility means insufficient depth across all
// candidate markets, in which case the MultiBuy best-effort answer is
// returned with insufficient_data set.
func (s *Solver) smartBuy(demands []Demand, orders book) []Allocation {
	var out []Allocation
	for _, d := range demands {
		if d.Quantity <= 0 {
			continue
		}
		out = append(out, s.smartBuyOne(d, orders[d.TypeID])...)
	}
	return sortAllocations(out)
}

func (s *Solver) smartBuyOne(d Demand, orders []Order) []Allocation {
	var depth int64
	for _, o := range orders {
		depth += o.Remaining
	}
	if depth < d.Quantity {
		return []Allocation{s.multiBuyOne(d, orders)}
	}

	taken, err := solveAllocation(d.Quantity, orders)
	if err != nil {
		s.log.Warn("LP solve failed, falling back to MultiBuy",
			"type_id", d.TypeID, "quantity", d.Quantity, "error", err)
		alloc := s.multiBuyOne(d, orders)
		alloc.InsufficientData = true
		return []Allocation{alloc}
	}

	// Aggregate non-zero variables by market: (market, sum(quantity),
	// max(price)).
	type agg struct {
		quantity int64
		price    float64
	}
	byMarket := map[int64]*agg{}
	for i, qty := range taken {
		if qty <= 0 {
			continue
		}
		a := byMarket[orders[i].StructureID]
		if a == nil {
			a = &agg{}
			byMarket[orders[i].StructureID] = a
		}
		a.quantity += qty
		if orders[i].Price > a.price {
			a.price = orders[i].Price
		}
	}
	out := make([]Allocation, 0, len(byMarket))
	for structureID, a := range byMarket {
		out = append(out, Allocation{
			StructureID: structureID,
			TypeID:      d.TypeID,
			Quantity:    a.quantity,
			Price:       a.price,
		})
	}
	return out
}

// solveAllocation runs the simplex over the standard-form program. Bounded
// variables are encoded with one slack per order:
//
//	minimize   Σ price_i * x_i
//	subject to Σ x_i = demand
//	           x_i + s_i = remaining_i
//	           x, s >= 0
func solveAllocation(demand int64, orders []Order) ([]int64, error) {
	n := len(orders)
	cols := 2 * n
	rows := 1 + n

	c := make([]float64, cols)
	a := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)

	b[0] = float64(demand)
	for i, o := range orders {
		c[i] = o.Price
		a.Set(0, i, 1)
		a.Set(1+i, i, 1)
		a.Set(1+i, n+i, 1)
		b[1+i] = float64(o.Remaining)
	}

	_, x, err := lp.Simplex(c, a, b, 0, nil)
	if err != nil {
		return nil, err
	}
	return roundAllocation(demand, orders, x[:n]), nil
}

// roundAllocation converts LP values to integers with banker's rounding and
// repairs any conservation drift against order capacities, cheapest orders
// first. The returned quantities always sum to demand.
func roundAllocation(demand int64, orders []Order, x []float64) []int64 {
	taken := make([]int64, len(x))
	var sum int64
	for i, v := range x {
		q := int64(math.RoundToEven(v))
		if q < 0 {
			q = 0
		}
		if q > orders[i].Remaining {
			q = orders[i].Remaining
		}
		taken[i] = q
		sum += q
	}
	if sum == demand {
		return taken
	}

	// Indices cheapest-first; orders arrive price-sorted already but the
	// repair must not depend on that.
	idx := make([]int, len(orders))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		a, b := orders[idx[i]], orders[idx[j]]
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		return a.OrderID < b.OrderID
	})

	if sum < demand {
		need := demand - sum
		for _, i := range idx {
			if need == 0 {
				break
			}
			room := orders[i].Remaining - taken[i]
			if room <= 0 {
				continue
			}
			if room > need {
				room = need
			}
			taken[i] += room
			need -= room
		}
	} else {
		excess := sum - demand
		for k := len(idx) - 1; k >= 0 && excess > 0; k-- {
			i := idx[k]
			give := taken[i]
			if give > excess {
				give = excess
			}
			taken[i] -= give
			excess -= give
		}
	}
	return taken
}
