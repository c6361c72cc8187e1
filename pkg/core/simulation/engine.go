// Package simulation models "what if I change this line item" exploration
// over a budget snapshot. All operations are pure: they never mutate the
// snapshot or the incoming state, and every transition returns a new State
// (or the same pointer to signal a no-op).
package simulation

import (
	"math"

	"budget_explorer/pkg/models"
)

const (
	// DefaultBalanceTolerance is the window within which a simulated budget
	// counts as balanced. Exact zero is unlikely after many rounded edits.
	DefaultBalanceTolerance = 1000.0

	// DefaultChangeEpsilon absorbs floating-point noise when deciding whether
	// a multiplier counts as "changed" for display. Presentation heuristic,
	// overridable per call.
	DefaultChangeEpsilon = 0.001

	// Default bounds for revenue source adjustments. Revenue sources carry no
	// per-source simulation config, so a uniform +/-50% window applies unless
	// the caller overrides it.
	DefaultRevenueMinPct = 0.5
	DefaultRevenueMaxPct = 1.5
)

// Parent is any budget entity that owns leaf line items. Both
// models.Department and models.RevenueSource satisfy it.
type Parent interface {
	Leaves() []models.Subcategory
}

// State is the full simulation position over one snapshot. Adjustments maps
// leaf subcategory id to multiplier; a missing entry means 1.0. Totals are
// always re-derived sums over every leaf, never incremental accumulators, so
// rounding cannot drift across edits.
type State struct {
	Adjustments map[string]float64 `json:"adjustments"`

	TotalBudget    float64 `json:"total_budget"`
	OriginalBudget float64 `json:"original_budget"`

	TotalRevenue     float64 `json:"total_revenue"`
	OriginalRevenue  float64 `json:"original_revenue"`
	UntrackedRevenue float64 `json:"untracked_revenue"`
}

// Initialize derives a fresh State from a snapshot: every expense and revenue
// leaf starts at multiplier 1.0, and the totals mirror the snapshot's own.
func Initialize(snap *models.BudgetSnapshot) *State {
	adjustments := make(map[string]float64)
	for _, dept := range snap.Appropriations.ByDepartment {
		for _, sub := range dept.Subcategories {
			adjustments[sub.ID] = 1.0
		}
	}

	totalRevenue := 0.0
	untracked := 0.0
	if snap.Revenue != nil {
		totalRevenue = snap.Revenue.TotalRevenue
		untracked = snap.Revenue.GrantRevenueEstimated
		for _, src := range snap.Revenue.BySource {
			for _, sub := range src.Subcategories {
				adjustments[sub.ID] = 1.0
			}
		}
	}

	return &State{
		Adjustments:      adjustments,
		TotalBudget:      snap.Metadata.TotalAppropriations,
		OriginalBudget:   snap.Metadata.TotalAppropriations,
		TotalRevenue:     totalRevenue,
		OriginalRevenue:  totalRevenue,
		UntrackedRevenue: untracked,
	}
}

// Reset discards all adjustments. Identical to Initialize.
func Reset(snap *models.BudgetSnapshot) *State {
	return Initialize(snap)
}

// AdjustExpenseSubcategory applies a multiplier edit to one expense leaf and
// returns the resulting state. Unknown ids and leaves owned by a
// non-adjustable department are silent no-ops: the same state pointer comes
// back, so callers can detect "nothing happened" by reference comparison.
// The multiplier is clamped into the owning department's [MinPct, MaxPct].
func AdjustExpenseSubcategory(state *State, departments []models.Department, subcategoryID string, multiplier float64) *State {
	owner := owningDepartment(departments, subcategoryID)
	if owner == nil || !owner.Simulation.Adjustable {
		return state
	}

	adjustments := cloneAdjustments(state.Adjustments)
	adjustments[subcategoryID] = clamp(multiplier, owner.Simulation.MinPct, owner.Simulation.MaxPct)

	// Full recomputation over every expense leaf. Summing from scratch (vs
	// patching the previous total) keeps per-leaf rounding from accumulating
	// across many edits.
	total := 0.0
	for _, dept := range departments {
		for _, sub := range dept.Subcategories {
			total += roundedAmount(sub, adjustments)
		}
	}

	next := *state
	next.Adjustments = adjustments
	next.TotalBudget = total
	return &next
}

// AdjustRevenueSubcategory applies a multiplier edit to one revenue leaf
// using the default +/-50% bounds. Revenue sources are uniformly adjustable,
// so only an unknown id produces the no-op (same pointer) result.
func AdjustRevenueSubcategory(state *State, sources []models.RevenueSource, subcategoryID string, multiplier float64) *State {
	return AdjustRevenueSubcategoryWithBounds(state, sources, subcategoryID, multiplier, DefaultRevenueMinPct, DefaultRevenueMaxPct)
}

// AdjustRevenueSubcategoryWithBounds is AdjustRevenueSubcategory with
// caller-supplied clamp bounds.
func AdjustRevenueSubcategoryWithBounds(state *State, sources []models.RevenueSource, subcategoryID string, multiplier, minPct, maxPct float64) *State {
	if !revenueLeafExists(sources, subcategoryID) {
		return state
	}

	adjustments := cloneAdjustments(state.Adjustments)
	adjustments[subcategoryID] = clamp(multiplier, minPct, maxPct)

	total := 0.0
	for _, src := range sources {
		for _, sub := range src.Subcategories {
			total += roundedAmount(sub, adjustments)
		}
	}

	next := *state
	next.Adjustments = adjustments
	next.TotalRevenue = total
	return &next
}

// AdjustedAmount returns the simulated amount for one leaf:
// round(amount x effective multiplier).
func AdjustedAmount(leaf models.Subcategory, state *State) float64 {
	return roundedAmount(leaf, state.Adjustments)
}

// AdjustedParentTotal sums AdjustedAmount over a parent's leaves. Rolled-up
// parent totals are always derived this way, never stored independently.
func AdjustedParentTotal(parent Parent, state *State) float64 {
	total := 0.0
	for _, sub := range parent.Leaves() {
		total += roundedAmount(sub, state.Adjustments)
	}
	return total
}

// Balance returns (total revenue + untracked revenue) - total budget.
// Positive means surplus, negative deficit.
func Balance(state *State) float64 {
	return state.TotalRevenue + state.UntrackedRevenue - state.TotalBudget
}

// Delta is the simulated change in total appropriations.
func Delta(state *State) float64 {
	return state.TotalBudget - state.OriginalBudget
}

// DeltaPercent is Delta as a percentage of the original budget, 0 when the
// original budget is zero.
func DeltaPercent(state *State) float64 {
	if state.OriginalBudget == 0 {
		return 0
	}
	return Delta(state) / state.OriginalBudget * 100
}

// IsBalanced reports whether the simulated delta sits within tolerance of
// zero. Pass DefaultBalanceTolerance unless the caller has its own window.
func IsBalanced(state *State, tolerance float64) bool {
	return math.Abs(Delta(state)) <= tolerance
}

// ChangedLeaves returns every leaf under parents whose effective multiplier
// differs from 1.0 by more than epsilon. Pass DefaultChangeEpsilon unless the
// caller configures its own threshold.
func ChangedLeaves(state *State, parents []Parent, epsilon float64) []models.Subcategory {
	changed := make([]models.Subcategory, 0)
	for _, parent := range parents {
		for _, sub := range parent.Leaves() {
			if math.Abs(multiplierFor(state.Adjustments, sub.ID)-1.0) > epsilon {
				changed = append(changed, sub)
			}
		}
	}
	return changed
}

func owningDepartment(departments []models.Department, subcategoryID string) *models.Department {
	for i := range departments {
		for _, sub := range departments[i].Subcategories {
			if sub.ID == subcategoryID {
				return &departments[i]
			}
		}
	}
	return nil
}

func revenueLeafExists(sources []models.RevenueSource, subcategoryID string) bool {
	for _, src := range sources {
		for _, sub := range src.Subcategories {
			if sub.ID == subcategoryID {
				return true
			}
		}
	}
	return false
}

func multiplierFor(adjustments map[string]float64, id string) float64 {
	if m, ok := adjustments[id]; ok {
		return m
	}
	return 1.0
}

func roundedAmount(leaf models.Subcategory, adjustments map[string]float64) float64 {
	return math.Round(leaf.Amount * multiplierFor(adjustments, leaf.ID))
}

func cloneAdjustments(adjustments map[string]float64) map[string]float64 {
	clone := make(map[string]float64, len(adjustments))
	for id, m := range adjustments {
		clone[id] = m
	}
	return clone
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
