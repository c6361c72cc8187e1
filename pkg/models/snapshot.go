// Package models defines the validated budget data shapes exchanged with the
// extraction pipeline. The core engines consume these verbatim and never
// revalidate them.
package models

// BudgetSnapshot is the immutable, pre-validated budget dataset for one
// entity and one fiscal year. The upstream pipeline guarantees hierarchical
// sum consistency (subcategories sum to parent, parents sum to total) and
// unique ids before a snapshot ever reaches the engines.
type BudgetSnapshot struct {
	Metadata       Metadata       `json:"metadata"`
	Appropriations Appropriations `json:"appropriations"`
	Revenue        *Revenue       `json:"revenue,omitempty"` // Absent when the entity publishes no revenue data for the year
}

// Metadata carries the top-level figures and identity of a snapshot.
type Metadata struct {
	SchemaVersion           string             `json:"schema_version"`
	Entity                  string             `json:"entity"`      // e.g., "city-of-chicago"
	FiscalYear              int                `json:"fiscal_year"` // e.g., 2024
	TotalAppropriations     float64            `json:"total_appropriations"`
	GrossAppropriations     float64            `json:"gross_appropriations"`
	OperatingAppropriations *float64           `json:"operating_appropriations,omitempty"` // Not all entities report an operating split
	TotalRevenue            *float64           `json:"total_revenue,omitempty"`            // Duplicated from Revenue when present; nil means "no revenue data", not zero
	FundCategoryBreakdown   map[string]float64 `json:"fund_category_breakdown"`
}

// Appropriations holds the expense side of the budget.
type Appropriations struct {
	ByDepartment []Department `json:"by_department"`
}

// Revenue holds the revenue side of the budget. Entirely optional: many
// historical snapshots only cover appropriations.
type Revenue struct {
	TotalRevenue          float64         `json:"total_revenue"`
	GrantRevenueEstimated float64         `json:"grant_revenue_estimated"` // Revenue estimated but not attributable to any source
	BySource              []RevenueSource `json:"by_source"`
}

// Department is one appropriations parent. Code is the stable identity used
// for year-over-year matching: it persists across fiscal years even when the
// id or display name changes (departments get renamed and reorganized).
type Department struct {
	ID            string           `json:"id"`
	Code          string           `json:"code"`
	Name          string           `json:"name"`
	Amount        float64          `json:"amount"`
	Subcategories []Subcategory    `json:"subcategories"`
	Simulation    SimulationConfig `json:"simulation"`
}

// SimulationConfig controls how a department behaves under simulation.
// Non-adjustable departments (e.g., debt service) reject multiplier edits.
type SimulationConfig struct {
	Adjustable bool    `json:"adjustable"`
	MinPct     float64 `json:"min_pct"`
	MaxPct     float64 `json:"max_pct"`
	StepPct    float64 `json:"step_pct"`
}

// RevenueSource is one revenue parent. Sources are always adjustable in
// simulation; there is no lock flag. Matching across years uses ID directly.
type RevenueSource struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Amount        float64       `json:"amount"`
	Category      string        `json:"category"` // e.g., "tax", "fee", "grant", "other"
	Subcategories []Subcategory `json:"subcategories"`
}

// Subcategory is the leaf line item. Each leaf is owned by exactly one
// Department or RevenueSource, and leaf ids are namespaced by their owning
// collection so expense and revenue ids never collide.
type Subcategory struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Leaves returns the department's subcategories. Department and RevenueSource
// both satisfy simulation.Parent through this accessor.
func (d Department) Leaves() []Subcategory { return d.Subcategories }

// Leaves returns the source's subcategories.
func (s RevenueSource) Leaves() []Subcategory { return s.Subcategories }
