package solver

import "sort"

// multiBuy fulfils each type from one market. For every candidate market it
// greedily consumes orders ascending by price until demand is met; the
// market with the lowest clearing price and full depth wins. When no market
// has enough depth the one with the greatest coverage is returned with
// insufficient_data set.
func (s *Solver) multiBuy(demands []Demand, orders book) []Allocation {
	var out []Allocation
	for _, d := range demands {
		if d.Quantity <= 0 {
			continue
		}
		out = append(out, s.multiBuyOne(d, orders[d.TypeID]))
	}
	return sortAllocations(out)
}

type marketQuote struct {
	structureID int64
	covered     int64
	maxPrice    float64
}

func (s *Solver) multiBuyOne(d Demand, orders []Order) Allocation {
	byMarket := map[int64][]Order{}
	for _, o := range orders {
		byMarket[o.StructureID] = append(byMarket[o.StructureID], o)
	}

	quotes := make([]marketQuote, 0, len(byMarket))
	for structureID, market := range byMarket {
		q := marketQuote{structureID: structureID}
		for _, o := range market {
			if q.covered >= d.Quantity {
				break
			}
			take := d.Quantity - q.covered
			if take > o.Remaining {
				take = o.Remaining
			}
			q.covered += take
			q.maxPrice = o.Price
		}
		quotes = append(quotes, q)
	}
	// Deterministic scan order regardless of map iteration.
	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].structureID < quotes[j].structureID
	})

	var best *marketQuote
	for i := range quotes {
		q := &quotes[i]
		if q.covered < d.Quantity {
			continue
		}
		if best == nil || q.maxPrice < best.maxPrice {
			best = q
		}
	}
	if best != nil {
		return Allocation{
			StructureID: best.structureID,
			TypeID:      d.TypeID,
			Quantity:    d.Quantity,
			Price:       best.maxPrice,
		}
	}

	// No market has enough depth: best effort by coverage.
	for i := range quotes {
		q := &quotes[i]
		if best == nil || q.covered > best.covered {
			best = q
		}
	}
	if best == nil {
		return Allocation{TypeID: d.TypeID, InsufficientData: true}
	}
	return Allocation{
		StructureID:      best.structureID,
		TypeID:           d.TypeID,
		Quantity:         best.covered,
		Price:            best.maxPrice,
		InsufficientData: true,
	}
}
