package simulation

import (
	"math"
	"reflect"
	"testing"

	"budget_explorer/pkg/models"
)

func floatPtr(f float64) *float64 { return &f }

// testSnapshot builds a small two-department, two-source snapshot:
//
//	Police (code 10, adjustable 0.5-1.5): patrol 600M + detectives 400M = 1B
//	Debt Service (code 90, locked):       principal 200M               = 200M
//	Total appropriations: 1.2B
//
//	Property Tax: levy 700M = 700M
//	Fees:         permits 300M = 300M
//	Total revenue 1B, grants (untracked) 100M
func testSnapshot() *models.BudgetSnapshot {
	return &models.BudgetSnapshot{
		Metadata: models.Metadata{
			SchemaVersion:       "1",
			Entity:              "test-city",
			FiscalYear:          2024,
			TotalAppropriations: 1_200_000_000,
			GrossAppropriations: 1_250_000_000,
			TotalRevenue:        floatPtr(1_000_000_000),
			FundCategoryBreakdown: map[string]float64{
				"general": 900_000_000,
				"capital": 300_000_000,
			},
		},
		Appropriations: models.Appropriations{
			ByDepartment: []models.Department{
				{
					ID: "dept-police", Code: "10", Name: "Police", Amount: 1_000_000_000,
					Subcategories: []models.Subcategory{
						{ID: "exp-patrol", Name: "Patrol", Amount: 600_000_000},
						{ID: "exp-detectives", Name: "Detectives", Amount: 400_000_000},
					},
					Simulation: models.SimulationConfig{Adjustable: true, MinPct: 0.5, MaxPct: 1.5, StepPct: 0.05},
				},
				{
					ID: "dept-debt", Code: "90", Name: "Debt Service", Amount: 200_000_000,
					Subcategories: []models.Subcategory{
						{ID: "exp-principal", Name: "Principal", Amount: 200_000_000},
					},
					Simulation: models.SimulationConfig{Adjustable: false, MinPct: 1, MaxPct: 1, StepPct: 0},
				},
			},
		},
		Revenue: &models.Revenue{
			TotalRevenue:          1_000_000_000,
			GrantRevenueEstimated: 100_000_000,
			BySource: []models.RevenueSource{
				{
					ID: "src-proptax", Name: "Property Tax", Amount: 700_000_000, Category: "tax",
					Subcategories: []models.Subcategory{
						{ID: "rev-levy", Name: "Levy", Amount: 700_000_000},
					},
				},
				{
					ID: "src-fees", Name: "Fees", Amount: 300_000_000, Category: "fee",
					Subcategories: []models.Subcategory{
						{ID: "rev-permits", Name: "Permits", Amount: 300_000_000},
					},
				},
			},
		},
	}
}

func TestInitializeMirrorsSnapshot(t *testing.T) {
	snap := testSnapshot()
	st := Initialize(snap)

	if st.TotalBudget != snap.Metadata.TotalAppropriations {
		t.Errorf("Expected TotalBudget %f, got %f", snap.Metadata.TotalAppropriations, st.TotalBudget)
	}
	if st.OriginalBudget != st.TotalBudget {
		t.Errorf("Expected OriginalBudget == TotalBudget, got %f vs %f", st.OriginalBudget, st.TotalBudget)
	}
	if st.TotalRevenue != 1_000_000_000 || st.OriginalRevenue != 1_000_000_000 {
		t.Errorf("Expected revenue 1B/1B, got %f/%f", st.TotalRevenue, st.OriginalRevenue)
	}
	if st.UntrackedRevenue != 100_000_000 {
		t.Errorf("Expected untracked revenue 100M, got %f", st.UntrackedRevenue)
	}

	// Every leaf (expense and revenue) starts at 1.0
	for _, id := range []string{"exp-patrol", "exp-detectives", "exp-principal", "rev-levy", "rev-permits"} {
		if m, ok := st.Adjustments[id]; !ok || m != 1.0 {
			t.Errorf("Expected multiplier 1.0 for %s, got %f (present=%v)", id, m, ok)
		}
	}
}

func TestInitializeWithoutRevenue(t *testing.T) {
	snap := testSnapshot()
	snap.Revenue = nil
	st := Initialize(snap)

	if st.TotalRevenue != 0 || st.OriginalRevenue != 0 || st.UntrackedRevenue != 0 {
		t.Errorf("Expected zero revenue fields without revenue data, got %f/%f/%f",
			st.TotalRevenue, st.OriginalRevenue, st.UntrackedRevenue)
	}
}

func TestResetIdempotence(t *testing.T) {
	snap := testSnapshot()
	st := Initialize(snap)
	st = AdjustExpenseSubcategory(st, snap.Appropriations.ByDepartment, "exp-patrol", 1.2)

	if !reflect.DeepEqual(Reset(snap), Initialize(snap)) {
		t.Error("Expected Reset and Initialize to produce structurally equal states")
	}
}

func TestRoundTripAdjustedAmount(t *testing.T) {
	snap := testSnapshot()
	st := Initialize(snap)
	for _, dept := range snap.Appropriations.ByDepartment {
		for _, sub := range dept.Subcategories {
			if got := AdjustedAmount(sub, st); got != sub.Amount {
				t.Errorf("Expected untouched leaf %s to round-trip at %f, got %f", sub.ID, sub.Amount, got)
			}
		}
	}
}

func TestAdjustClampsToBounds(t *testing.T) {
	snap := testSnapshot()
	depts := snap.Appropriations.ByDepartment
	st := Initialize(snap)

	// Police bounds are [0.5, 1.5]; requesting 2.0 stores exactly 1.5.
	st = AdjustExpenseSubcategory(st, depts, "exp-patrol", 2.0)
	if m := st.Adjustments["exp-patrol"]; m != 1.5 {
		t.Errorf("Expected clamped multiplier 1.5, got %f", m)
	}
	// Total reflects x1.5, not x2.0: 600M*1.5 + 400M + 200M = 1.5B
	if st.TotalBudget != 1_500_000_000 {
		t.Errorf("Expected TotalBudget 1.5B after clamp, got %f", st.TotalBudget)
	}

	st = AdjustExpenseSubcategory(st, depts, "exp-patrol", 0.1)
	if m := st.Adjustments["exp-patrol"]; m != 0.5 {
		t.Errorf("Expected clamped multiplier 0.5, got %f", m)
	}
}

func TestAdjustUnknownIDIsReferenceEqualNoOp(t *testing.T) {
	snap := testSnapshot()
	st := Initialize(snap)

	if next := AdjustExpenseSubcategory(st, snap.Appropriations.ByDepartment, "exp-nope", 1.2); next != st {
		t.Error("Expected unknown expense id to return the same state pointer")
	}
	if next := AdjustRevenueSubcategory(st, snap.Revenue.BySource, "rev-nope", 1.2); next != st {
		t.Error("Expected unknown revenue id to return the same state pointer")
	}
}

func TestAdjustLockedDepartmentIsNoOp(t *testing.T) {
	snap := testSnapshot()
	st := Initialize(snap)

	next := AdjustExpenseSubcategory(st, snap.Appropriations.ByDepartment, "exp-principal", 0.5)
	if next != st {
		t.Error("Expected edit on non-adjustable department to return the same state pointer")
	}
	if st.Adjustments["exp-principal"] != 1.0 {
		t.Errorf("Expected locked leaf to stay at 1.0, got %f", st.Adjustments["exp-principal"])
	}
}

func TestAdjustDoesNotMutatePriorState(t *testing.T) {
	snap := testSnapshot()
	st := Initialize(snap)
	before := st.TotalBudget

	next := AdjustExpenseSubcategory(st, snap.Appropriations.ByDepartment, "exp-patrol", 1.4)
	if st.TotalBudget != before {
		t.Errorf("Expected prior state untouched, TotalBudget changed to %f", st.TotalBudget)
	}
	if st.Adjustments["exp-patrol"] != 1.0 {
		t.Errorf("Expected prior adjustments untouched, got %f", st.Adjustments["exp-patrol"])
	}
	if next == st {
		t.Error("Expected a successful edit to return a new state")
	}
}

func TestOrderIndependence(t *testing.T) {
	snap := testSnapshot()
	depts := snap.Appropriations.ByDepartment

	a := Initialize(snap)
	a = AdjustExpenseSubcategory(a, depts, "exp-patrol", 1.3)
	a = AdjustExpenseSubcategory(a, depts, "exp-detectives", 0.7)

	b := Initialize(snap)
	b = AdjustExpenseSubcategory(b, depts, "exp-detectives", 0.7)
	b = AdjustExpenseSubcategory(b, depts, "exp-patrol", 1.3)

	if a.TotalBudget != b.TotalBudget {
		t.Errorf("Expected order-independent totals, got %f vs %f", a.TotalBudget, b.TotalBudget)
	}
}

func TestRevenueAdjustmentAndPassThrough(t *testing.T) {
	snap := testSnapshot()
	st := Initialize(snap)

	next := AdjustRevenueSubcategory(st, snap.Revenue.BySource, "rev-levy", 1.1)
	// 700M*1.1 + 300M = 1.07B
	if next.TotalRevenue != 1_070_000_000 {
		t.Errorf("Expected TotalRevenue 1.07B, got %f", next.TotalRevenue)
	}
	// Expense side passes through unchanged
	if next.TotalBudget != st.TotalBudget || next.OriginalBudget != st.OriginalBudget {
		t.Errorf("Expected expense fields unchanged, got %f/%f", next.TotalBudget, next.OriginalBudget)
	}

	// Default bounds clamp at +/-50%
	clamped := AdjustRevenueSubcategory(st, snap.Revenue.BySource, "rev-levy", 3.0)
	if m := clamped.Adjustments["rev-levy"]; m != DefaultRevenueMaxPct {
		t.Errorf("Expected default max bound %f, got %f", DefaultRevenueMaxPct, m)
	}

	// Caller-supplied bounds win
	wide := AdjustRevenueSubcategoryWithBounds(st, snap.Revenue.BySource, "rev-levy", 3.0, 0, 5)
	if m := wide.Adjustments["rev-levy"]; m != 3.0 {
		t.Errorf("Expected override bounds to allow 3.0, got %f", m)
	}
}

func TestBalanceScenario(t *testing.T) {
	// Two sources totaling 1B + 500M, untracked 3B, budget 12B:
	// balance = 1.5B + 3B - 12B = -7.5B (deficit)
	st := &State{
		Adjustments:      map[string]float64{},
		TotalBudget:      12_000_000_000,
		OriginalBudget:   12_000_000_000,
		TotalRevenue:     1_500_000_000,
		OriginalRevenue:  1_500_000_000,
		UntrackedRevenue: 3_000_000_000,
	}
	if got := Balance(st); got != -7_500_000_000 {
		t.Errorf("Expected balance -7.5B, got %f", got)
	}
}

func TestDeltaAndIsBalanced(t *testing.T) {
	snap := testSnapshot()
	depts := snap.Appropriations.ByDepartment
	st := Initialize(snap)

	if Delta(st) != 0 || DeltaPercent(st) != 0 {
		t.Errorf("Expected zero delta on fresh state, got %f / %f%%", Delta(st), DeltaPercent(st))
	}
	if !IsBalanced(st, DefaultBalanceTolerance) {
		t.Error("Expected fresh state to be balanced")
	}

	st = AdjustExpenseSubcategory(st, depts, "exp-patrol", 1.5)
	// Delta = 600M*0.5 = 300M; 300M / 1.2B * 100 = 25%
	if Delta(st) != 300_000_000 {
		t.Errorf("Expected delta 300M, got %f", Delta(st))
	}
	if math.Abs(DeltaPercent(st)-25.0) > 1e-9 {
		t.Errorf("Expected delta 25%%, got %f", DeltaPercent(st))
	}
	if IsBalanced(st, DefaultBalanceTolerance) {
		t.Error("Expected a 300M delta to be out of the balance window")
	}
}

func TestDeltaPercentZeroOriginal(t *testing.T) {
	st := &State{Adjustments: map[string]float64{}}
	if got := DeltaPercent(st); got != 0 {
		t.Errorf("Expected 0%% with zero original budget, got %f", got)
	}
}

func TestChangedLeaves(t *testing.T) {
	snap := testSnapshot()
	depts := snap.Appropriations.ByDepartment
	st := Initialize(snap)

	parents := make([]Parent, 0, len(depts))
	for _, d := range depts {
		parents = append(parents, d)
	}

	if got := ChangedLeaves(st, parents, DefaultChangeEpsilon); len(got) != 0 {
		t.Errorf("Expected no changed leaves on fresh state, got %d", len(got))
	}

	st = AdjustExpenseSubcategory(st, depts, "exp-patrol", 1.2)
	got := ChangedLeaves(st, parents, DefaultChangeEpsilon)
	if len(got) != 1 || got[0].ID != "exp-patrol" {
		t.Errorf("Expected exactly [exp-patrol], got %v", got)
	}

	// A wobble inside epsilon does not count as changed.
	st.Adjustments["exp-detectives"] = 1.0005
	if got := ChangedLeaves(st, parents, DefaultChangeEpsilon); len(got) != 1 {
		t.Errorf("Expected sub-epsilon wobble to be ignored, got %d leaves", len(got))
	}
}

func TestAdjustedParentTotal(t *testing.T) {
	snap := testSnapshot()
	depts := snap.Appropriations.ByDepartment
	st := Initialize(snap)
	st = AdjustExpenseSubcategory(st, depts, "exp-patrol", 1.5)

	// 600M*1.5 + 400M = 1.3B
	if got := AdjustedParentTotal(depts[0], st); got != 1_300_000_000 {
		t.Errorf("Expected Police adjusted total 1.3B, got %f", got)
	}
	// Locked department untouched
	if got := AdjustedParentTotal(depts[1], st); got != 200_000_000 {
		t.Errorf("Expected Debt Service total 200M, got %f", got)
	}
}
