package solver

import (
	"errors"
	"testing"
	"time"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sell(orderID, structureID int64, typeID int32, remaining int64, price float64) Order {
	return Order{
		OrderID:     orderID,
		StructureID: structureID,
		TypeID:      typeID,
		Remaining:   remaining,
		Price:       price,
		Expires:     testNow.Add(24 * time.Hour),
	}
}

func TestMultiBuyPicksCheapestFullDepthMarket(t *testing.T) {
	s := New(logger.Nop())
	// Market 60001 is cheaper but short; 60002 covers the full demand.
	orders := []Order{
		sell(1, 60001, 34, 800_000, 5.0),
		sell(2, 60002, 34, 1_000_000, 5.2),
	}
	demands := []Demand{{TypeID: 34, Quantity: 1_000_000}}

	allocs, err := s.Solve(MultiBuy, demands, orders, testNow)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(allocs) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(allocs))
	}
	a := allocs[0]
	if a.StructureID != 60002 || a.Quantity != 1_000_000 || a.Price != 5.2 {
		t.Fatalf("unexpected allocation %+v", a)
	}
	if a.InsufficientData {
		t.Fatalf("full-depth market flagged insufficient")
	}
}

func TestMultiBuyPrefersLowerClearingPrice(t *testing.T) {
	s := New(logger.Nop())
	// Both markets have depth; 60001 clears at 5.1, 60002 at 5.3.
	orders := []Order{
		sell(1, 60001, 34, 600, 5.0),
		sell(2, 60001, 34, 600, 5.1),
		sell(3, 60002, 34, 1000, 5.3),
	}
	allocs, err := s.Solve(MultiBuy, []Demand{{TypeID: 34, Quantity: 1000}}, orders, testNow)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if allocs[0].StructureID != 60001 || allocs[0].Price != 5.1 {
		t.Fatalf("unexpected allocation %+v", allocs[0])
	}
}

func TestMultiBuyInsufficientDepthReturnsBestCoverage(t *testing.T) {
	s := New(logger.Nop())
	orders := []Order{
		sell(1, 60001, 34, 300, 5.0),
		sell(2, 60002, 34, 500, 6.0),
	}
	allocs, err := s.Solve(MultiBuy, []Demand{{TypeID: 34, Quantity: 1000}}, orders, testNow)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	a := allocs[0]
	if !a.InsufficientData {
		t.Fatalf("expected insufficient_data, got %+v", a)
	}
	if a.StructureID != 60002 || a.Quantity != 500 {
		t.Fatalf("expected best coverage from 60002, got %+v", a)
	}
}

func TestMultiBuyNoOrdersAtAll(t *testing.T) {
	s := New(logger.Nop())
	allocs, err := s.Solve(MultiBuy, []Demand{{TypeID: 34, Quantity: 10}}, nil, testNow)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	a := allocs[0]
	if !a.InsufficientData || a.Quantity != 0 {
		t.Fatalf("expected empty insufficient allocation, got %+v", a)
	}
}

func TestSolveExcludesBuyExpiredAndEmptyOrders(t *testing.T) {
	s := New(logger.Nop())
	buy := sell(1, 60001, 34, 1000, 4.0)
	buy.IsBuy = true
	expired := sell(2, 60001, 34, 1000, 4.1)
	expired.Expires = testNow.Add(-time.Minute)
	empty := sell(3, 60001, 34, 0, 4.2)
	live := sell(4, 60001, 34, 1000, 5.0)

	allocs, err := s.Solve(MultiBuy,
		[]Demand{{TypeID: 34, Quantity: 500}},
		[]Order{buy, expired, empty, live}, testNow)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if allocs[0].Price != 5.0 {
		t.Fatalf("filtered order leaked into solve: %+v", allocs[0])
	}
}

func TestSmartBuySplitsAcrossMarkets(t *testing.T) {
	s := New(logger.Nop())
	// Cheapest 1.5M units sit across both markets: all of 60001 at 5.0
	// plus 500k of 60002 at 5.1.
	orders := []Order{
		sell(1, 60001, 34, 1_000_000, 5.0),
		sell(2, 60002, 34, 700_000, 5.1),
	}
	allocs, err := s.Solve(SmartBuy, []Demand{{TypeID: 34, Quantity: 1_500_000}}, orders, testNow)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(allocs) != 2 {
		t.Fatalf("expected 2 allocations, got %d: %+v", len(allocs), allocs)
	}
	// sortAllocations orders by type then structure id.
	if allocs[0].StructureID != 60001 || allocs[0].Quantity != 1_000_000 || allocs[0].Price != 5.0 {
		t.Fatalf("unexpected first allocation %+v", allocs[0])
	}
	if allocs[1].StructureID != 60002 || allocs[1].Quantity != 500_000 || allocs[1].Price != 5.1 {
		t.Fatalf("unexpected second allocation %+v", allocs[1])
	}
	var total float64
	for _, a := range allocs {
		total += float64(a.Quantity) * a.Price
	}
	if diff := total - 7_550_000; diff > 1e-3 || diff < -1e-3 {
		t.Fatalf("expected total 7,550,000, got %v", total)
	}
}

func TestSmartBuyConservesQuantity(t *testing.T) {
	s := New(logger.Nop())
	orders := []Order{
		sell(1, 60001, 34, 333, 5.0),
		sell(2, 60001, 34, 333, 5.05),
		sell(3, 60002, 34, 334, 5.1),
		sell(4, 60002, 34, 500, 5.2),
	}
	const demand = 900
	allocs, err := s.Solve(SmartBuy, []Demand{{TypeID: 34, Quantity: demand}}, orders, testNow)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	var sum int64
	for _, a := range allocs {
		sum += a.Quantity
	}
	if sum != demand {
		t.Fatalf("allocations sum to %d, want %d", sum, demand)
	}
}

func TestSmartBuyShortDepthFallsBackToMultiBuy(t *testing.T) {
	s := New(logger.Nop())
	orders := []Order{
		sell(1, 60001, 34, 400, 5.0),
	}
	allocs, err := s.Solve(SmartBuy, []Demand{{TypeID: 34, Quantity: 1000}}, orders, testNow)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	a := allocs[0]
	if !a.InsufficientData || a.Quantity != 400 || a.StructureID != 60001 {
		t.Fatalf("unexpected fallback allocation %+v", a)
	}
}

func TestSolveMultipleDemandsSorted(t *testing.T) {
	s := New(logger.Nop())
	orders := []Order{
		sell(1, 60001, 36, 1000, 20.0),
		sell(2, 60001, 34, 1000, 5.0),
	}
	allocs, err := s.Solve(MultiBuy, []Demand{
		{TypeID: 36, Quantity: 100},
		{TypeID: 34, Quantity: 100},
	}, orders, testNow)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(allocs) != 2 || allocs[0].TypeID != 34 || allocs[1].TypeID != 36 {
		t.Fatalf("allocations not sorted by type: %+v", allocs)
	}
}

func TestSolveSkipsNonPositiveDemand(t *testing.T) {
	s := New(logger.Nop())
	allocs, err := s.Solve(MultiBuy, []Demand{{TypeID: 34, Quantity: 0}}, nil, testNow)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(allocs) != 0 {
		t.Fatalf("expected no allocations, got %+v", allocs)
	}
}

func TestSolveUnknownStrategy(t *testing.T) {
	s := New(logger.Nop())
	_, err := s.Solve(Strategy("Arbitrage"), nil, nil, testNow)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRoundAllocationRepairsDrift(t *testing.T) {
	orders := []Order{
		sell(1, 60001, 34, 10, 5.0),
		sell(2, 60002, 34, 10, 6.0),
	}
	// Fractional LP output that rounds to 4 + 5 = 9 against a demand of 10.
	taken := roundAllocation(10, orders, []float64{4.4, 4.6})
	if taken[0]+taken[1] != 10 {
		t.Fatalf("repair failed: %v", taken)
	}
	// The shortfall lands on the cheaper order.
	if taken[0] != 5 {
		t.Fatalf("expected cheap order topped up, got %v", taken)
	}
}
