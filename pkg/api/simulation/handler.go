// Package simulation exposes the simulation engine over HTTP. The engine
// itself is pure; these handlers thread snapshots and caller-held state
// through it. Simulation state is never persisted server-side: each request
// carries the state and gets the transitioned state back.
package simulation

import (
	"context"
	"encoding/json"
	"net/http"

	"budget_explorer/pkg/core/simulation"
	"budget_explorer/pkg/models"
)

// SnapshotProvider supplies snapshots by entity and fiscal year. Satisfied by
// store.SnapshotCache.
type SnapshotProvider interface {
	Get(ctx context.Context, entity string, fiscalYear int) (*models.BudgetSnapshot, error)
}

// Options carries presentation-tunable engine parameters from app config.
type Options struct {
	ChangeEpsilon    float64
	BalanceTolerance float64
	RevenueMinPct    float64
	RevenueMaxPct    float64
}

// DefaultOptions mirrors the engine defaults.
func DefaultOptions() Options {
	return Options{
		ChangeEpsilon:    simulation.DefaultChangeEpsilon,
		BalanceTolerance: simulation.DefaultBalanceTolerance,
		RevenueMinPct:    simulation.DefaultRevenueMinPct,
		RevenueMaxPct:    simulation.DefaultRevenueMaxPct,
	}
}

// Handler holds dependencies for simulation endpoints.
type Handler struct {
	Snapshots SnapshotProvider
	Opts      Options
}

// NewHandler creates a new simulation handler.
func NewHandler(snapshots SnapshotProvider, opts Options) *Handler {
	return &Handler{Snapshots: snapshots, Opts: opts}
}

type InitRequest struct {
	Entity     string `json:"entity"`
	FiscalYear int    `json:"fiscal_year"`
}

type AdjustRequest struct {
	Entity        string            `json:"entity"`
	FiscalYear    int               `json:"fiscal_year"`
	State         *simulation.State `json:"state"`
	Kind          string            `json:"kind"` // "expense" or "revenue"
	SubcategoryID string            `json:"subcategory_id"`
	Multiplier    float64           `json:"multiplier"`
}

type SummaryRequest struct {
	Entity     string            `json:"entity"`
	FiscalYear int               `json:"fiscal_year"`
	State      *simulation.State `json:"state"`
}

// StateResponse wraps a state with its derived figures so the presentation
// layer never recomputes engine math.
type StateResponse struct {
	State      *simulation.State    `json:"state"`
	NoOp       bool                 `json:"no_op"`
	Balance    float64              `json:"balance"`
	Delta      float64              `json:"delta"`
	DeltaPct   float64              `json:"delta_pct"`
	IsBalanced bool                 `json:"is_balanced"`
	Changed    []models.Subcategory `json:"changed_leaves"`
}

// HandleInit creates a fresh state for a snapshot.
// POST /api/simulation/init
func (h *Handler) HandleInit(w http.ResponseWriter, r *http.Request) {
	if !allowPost(w, r) {
		return
	}

	var req InitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := h.Snapshots.Get(r.Context(), req.Entity, req.FiscalYear)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	state := simulation.Initialize(snap)
	json.NewEncoder(w).Encode(h.describe(snap, state, false))
}

// HandleAdjust applies one multiplier edit and returns the transitioned
// state. A no-op edit (unknown id, locked department) is reported via the
// no_op flag, not an error status: it is a legitimate engine outcome.
// POST /api/simulation/adjust
func (h *Handler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	if !allowPost(w, r) {
		return
	}

	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.State == nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := h.Snapshots.Get(r.Context(), req.Entity, req.FiscalYear)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	var next *simulation.State
	switch req.Kind {
	case "revenue":
		var sources []models.RevenueSource
		if snap.Revenue != nil {
			sources = snap.Revenue.BySource
		}
		next = simulation.AdjustRevenueSubcategoryWithBounds(req.State, sources,
			req.SubcategoryID, req.Multiplier, h.Opts.RevenueMinPct, h.Opts.RevenueMaxPct)
	default:
		next = simulation.AdjustExpenseSubcategory(req.State, snap.Appropriations.ByDepartment,
			req.SubcategoryID, req.Multiplier)
	}

	json.NewEncoder(w).Encode(h.describe(snap, next, next == req.State))
}

// HandleSummary recomputes the derived figures for a caller-held state.
// POST /api/simulation/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if !allowPost(w, r) {
		return
	}

	var req SummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.State == nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := h.Snapshots.Get(r.Context(), req.Entity, req.FiscalYear)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(h.describe(snap, req.State, false))
}

func (h *Handler) describe(snap *models.BudgetSnapshot, state *simulation.State, noOp bool) StateResponse {
	parents := make([]simulation.Parent, 0, len(snap.Appropriations.ByDepartment))
	for _, d := range snap.Appropriations.ByDepartment {
		parents = append(parents, d)
	}
	if snap.Revenue != nil {
		for _, s := range snap.Revenue.BySource {
			parents = append(parents, s)
		}
	}

	return StateResponse{
		State:      state,
		NoOp:       noOp,
		Balance:    simulation.Balance(state),
		Delta:      simulation.Delta(state),
		DeltaPct:   simulation.DeltaPercent(state),
		IsBalanced: simulation.IsBalanced(state, h.Opts.BalanceTolerance),
		Changed:    simulation.ChangedLeaves(state, parents, h.Opts.ChangeEpsilon),
	}
}

// allowPost writes the CORS preamble and filters non-POST methods.
func allowPost(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return false
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
