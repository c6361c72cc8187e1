// Package comparison computes structured year-over-year deltas between two
// budget snapshots at four granularities: top-level totals, departments,
// subcategories, and revenue sources. One full-outer-join algorithm drives
// all four; only the identity key differs (stable code for departments, id
// elsewhere, fixed keys for top-level figures).
//
// Nothing here ever panics or returns an error: absent figures, zero
// denominators, and one-sided entities all resolve to explicit nil values or
// added/removed statuses, since the output feeds display logic that must
// render something for any legitimate input.
package comparison

import (
	"sort"

	"budget_explorer/pkg/models"
)

// Status tags how an entity relates across the two compared years.
type Status string

const (
	StatusCommon  Status = "common"  // present in both years
	StatusAdded   Status = "added"   // absent from the base year
	StatusRemoved Status = "removed" // absent from the target year
)

// Item is one compared entity. Amounts are nil on the side the entity is
// absent from. Delta is non-nil iff both amounts are non-nil; DeltaPct is
// additionally nil when the base amount is zero (0/0 and x/0 both yield nil,
// never Inf or NaN).
type Item struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	BaseAmount   *float64 `json:"base_amount"`
	TargetAmount *float64 `json:"target_amount"`
	Delta        *float64 `json:"delta"`
	DeltaPct     *float64 `json:"delta_pct"`
	Status       Status   `json:"status"`
}

// Summary is the top-level comparison. Pointer fields are nil when either
// year lacks the figure entirely, distinguishing "no data" from "zero".
type Summary struct {
	TotalAppropriations     *Item  `json:"total_appropriations"`
	GrossAppropriations     *Item  `json:"gross_appropriations"`
	OperatingAppropriations *Item  `json:"operating_appropriations"`
	TotalRevenue            *Item  `json:"total_revenue"`
	FundCategories          []Item `json:"fund_categories"`
}

// CompareTopLevel compares the scalar headline figures of two snapshots plus
// a full outer join over their fund-category breakdowns.
func CompareTopLevel(base, target *models.BudgetSnapshot) *Summary {
	totalAppropriations := newItem("total_appropriations", "Total Appropriations",
		&base.Metadata.TotalAppropriations, &target.Metadata.TotalAppropriations)
	grossAppropriations := newItem("gross_appropriations", "Gross Appropriations",
		&base.Metadata.GrossAppropriations, &target.Metadata.GrossAppropriations)

	summary := &Summary{
		TotalAppropriations: &totalAppropriations,
		GrossAppropriations: &grossAppropriations,
		FundCategories:      joinFundCategories(base.Metadata.FundCategoryBreakdown, target.Metadata.FundCategoryBreakdown),
	}

	// Operating and revenue figures are optional per year. When either year
	// lacks one entirely the whole comparison is nil, not a zero-valued Item.
	if base.Metadata.OperatingAppropriations != nil && target.Metadata.OperatingAppropriations != nil {
		item := newItem("operating_appropriations", "Operating Appropriations",
			base.Metadata.OperatingAppropriations, target.Metadata.OperatingAppropriations)
		summary.OperatingAppropriations = &item
	}

	baseRev, targetRev := revenueFigure(base), revenueFigure(target)
	if baseRev != nil && targetRev != nil {
		item := newItem("total_revenue", "Total Revenue", baseRev, targetRev)
		summary.TotalRevenue = &item
	}

	return summary
}

// CompareDepartments joins the two department lists by stable code. Code is
// the identity that persists across fiscal years; both id and display name
// may change when departments get renamed or reorganized.
func CompareDepartments(base, target *models.BudgetSnapshot) []Item {
	return fullOuterJoin(
		departmentRecords(base.Appropriations.ByDepartment),
		departmentRecords(target.Appropriations.ByDepartment),
	)
}

// CompareSubcategories joins two leaf lists by id. Either side may be nil or
// empty (the whole parent added or removed); a missing side simply
// contributes no records, so every leaf on the other side comes back
// one-sided.
func CompareSubcategories(base, target []models.Subcategory) []Item {
	return fullOuterJoin(subcategoryRecords(base), subcategoryRecords(target))
}

// CompareRevenueSources joins the two revenue source lists by id. Returns nil
// outright when either year has no revenue data at all, so callers can
// distinguish "not applicable" from "applicable but empty" (a non-nil empty
// slice).
func CompareRevenueSources(base, target *models.BudgetSnapshot) []Item {
	if base.Revenue == nil || target.Revenue == nil {
		return nil
	}
	return fullOuterJoin(sourceRecords(base.Revenue.BySource), sourceRecords(target.Revenue.BySource))
}

// ResolveRevenueType looks up a source's category tag in the target year,
// then the base year, defaulting to "other".
func ResolveRevenueType(sourceID string, base, target *models.BudgetSnapshot) string {
	if cat := sourceCategory(target, sourceID); cat != "" {
		return cat
	}
	if cat := sourceCategory(base, sourceID); cat != "" {
		return cat
	}
	return "other"
}

// record is one side's entry in the generic join: an identity key, a display
// name, and an amount.
type record struct {
	key    string
	name   string
	amount float64
}

// fullOuterJoin is the single join algorithm behind every granularity.
// Output order is deterministic: base-side keys in their input order, then
// target-only keys in theirs. Final ordering belongs to the caller.
func fullOuterJoin(base, target []record) []Item {
	baseByKey := make(map[string]record, len(base))
	for _, r := range base {
		baseByKey[r.key] = r
	}
	targetByKey := make(map[string]record, len(target))
	for _, r := range target {
		targetByKey[r.key] = r
	}

	items := make([]Item, 0, len(base)+len(target))
	for _, b := range base {
		var baseAmt, targetAmt *float64
		amt := b.amount
		baseAmt = &amt

		name := b.name
		if tr, ok := targetByKey[b.key]; ok {
			tAmt := tr.amount
			targetAmt = &tAmt
			if tr.name != "" {
				name = tr.name // prefer the target year's label
			}
		}
		if name == "" {
			name = b.key
		}
		items = append(items, newItem(b.key, name, baseAmt, targetAmt))
	}
	for _, tr := range target {
		if _, ok := baseByKey[tr.key]; ok {
			continue
		}
		tAmt := tr.amount
		name := tr.name
		if name == "" {
			name = tr.key
		}
		items = append(items, newItem(tr.key, name, nil, &tAmt))
	}
	return items
}

// newItem derives status and null-safe delta math for one compared entity.
func newItem(id, name string, base, target *float64) Item {
	item := Item{
		ID:           id,
		Name:         name,
		BaseAmount:   base,
		TargetAmount: target,
		Status:       StatusCommon,
	}
	if base == nil {
		item.Status = StatusAdded
	} else if target == nil {
		item.Status = StatusRemoved
	}
	if base != nil && target != nil {
		delta := *target - *base
		item.Delta = &delta
		if *base != 0 {
			pct := delta / *base * 100
			item.DeltaPct = &pct
		}
	}
	return item
}

func departmentRecords(departments []models.Department) []record {
	records := make([]record, 0, len(departments))
	for _, d := range departments {
		records = append(records, record{key: d.Code, name: d.Name, amount: d.Amount})
	}
	return records
}

func subcategoryRecords(subcategories []models.Subcategory) []record {
	records := make([]record, 0, len(subcategories))
	for _, s := range subcategories {
		records = append(records, record{key: s.ID, name: s.Name, amount: s.Amount})
	}
	return records
}

func sourceRecords(sources []models.RevenueSource) []record {
	records := make([]record, 0, len(sources))
	for _, s := range sources {
		records = append(records, record{key: s.ID, name: s.Name, amount: s.Amount})
	}
	return records
}

// joinFundCategories joins the breakdown maps with the category name as both
// key and label. Map iteration order is random, so keys are sorted for a
// stable result.
func joinFundCategories(base, target map[string]float64) []Item {
	return fullOuterJoin(fundRecords(base), fundRecords(target))
}

func fundRecords(breakdown map[string]float64) []record {
	keys := make([]string, 0, len(breakdown))
	for k := range breakdown {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]record, 0, len(keys))
	for _, k := range keys {
		records = append(records, record{key: k, name: k, amount: breakdown[k]})
	}
	return records
}

func sourceCategory(snap *models.BudgetSnapshot, sourceID string) string {
	if snap == nil || snap.Revenue == nil {
		return ""
	}
	for _, src := range snap.Revenue.BySource {
		if src.ID == sourceID {
			return src.Category
		}
	}
	return ""
}

func revenueFigure(snap *models.BudgetSnapshot) *float64 {
	if snap.Revenue != nil {
		return &snap.Revenue.TotalRevenue
	}
	return snap.Metadata.TotalRevenue
}
