// Package comparison exposes year-over-year comparison reports over HTTP.
package comparison

import (
	"context"
	"encoding/json"
	"net/http"

	"budget_explorer/pkg/core/comparison"
	"budget_explorer/pkg/core/report"
	"budget_explorer/pkg/models"
)

// SnapshotProvider supplies snapshots by entity and fiscal year. Satisfied by
// store.SnapshotCache.
type SnapshotProvider interface {
	Get(ctx context.Context, entity string, fiscalYear int) (*models.BudgetSnapshot, error)
}

// Handler holds dependencies for comparison endpoints.
type Handler struct {
	Snapshots SnapshotProvider
}

// NewHandler creates a new comparison handler.
func NewHandler(snapshots SnapshotProvider) *Handler {
	return &Handler{Snapshots: snapshots}
}

type ReportRequest struct {
	Entity     string `json:"entity"`
	BaseYear   int    `json:"base_year"`
	TargetYear int    `json:"target_year"`
}

// ReportResponse is the full comparison at every granularity. RevenueSources
// is null (not []) when either year has no revenue data; Subcategories maps
// department code to the per-leaf join, including departments present in only
// one year.
type ReportResponse struct {
	Summary        *comparison.Summary          `json:"summary"`
	Departments    []comparison.Item            `json:"departments"`
	Subcategories  map[string][]comparison.Item `json:"subcategories"`
	RevenueSources []comparison.Item            `json:"revenue_sources"`
	RevenueTypes   map[string]string            `json:"revenue_types,omitempty"`
}

// HandleReport computes the comparison between two fiscal years.
// POST /api/comparison/report (?format=html for a rendered report)
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	base, err := h.Snapshots.Get(r.Context(), req.Entity, req.BaseYear)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	target, err := h.Snapshots.Get(r.Context(), req.Entity, req.TargetYear)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	resp := buildReport(base, target)

	if r.URL.Query().Get("format") == "html" {
		md := report.BuildMarkdown(req.Entity, req.BaseYear, req.TargetYear,
			resp.Summary, resp.Departments, resp.RevenueSources)
		html, err := report.RenderHTML(md)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
		return
	}

	json.NewEncoder(w).Encode(resp)
}

func buildReport(base, target *models.BudgetSnapshot) *ReportResponse {
	resp := &ReportResponse{
		Summary:        comparison.CompareTopLevel(base, target),
		Departments:    comparison.CompareDepartments(base, target),
		Subcategories:  make(map[string][]comparison.Item),
		RevenueSources: comparison.CompareRevenueSources(base, target),
	}

	// Per-department leaf joins, keyed by stable code. Either side may be
	// missing a department entirely; the engine treats a missing side's leaf
	// list as empty.
	baseByCode := departmentsByCode(base)
	targetByCode := departmentsByCode(target)
	for code, dept := range baseByCode {
		resp.Subcategories[code] = comparison.CompareSubcategories(
			dept.Subcategories, targetLeaves(targetByCode, code))
	}
	for code, dept := range targetByCode {
		if _, seen := baseByCode[code]; seen {
			continue
		}
		resp.Subcategories[code] = comparison.CompareSubcategories(nil, dept.Subcategories)
	}

	if resp.RevenueSources != nil {
		resp.RevenueTypes = make(map[string]string, len(resp.RevenueSources))
		for _, item := range resp.RevenueSources {
			resp.RevenueTypes[item.ID] = comparison.ResolveRevenueType(item.ID, base, target)
		}
	}

	return resp
}

func departmentsByCode(snap *models.BudgetSnapshot) map[string]models.Department {
	byCode := make(map[string]models.Department, len(snap.Appropriations.ByDepartment))
	for _, d := range snap.Appropriations.ByDepartment {
		byCode[d.Code] = d
	}
	return byCode
}

func targetLeaves(byCode map[string]models.Department, code string) []models.Subcategory {
	if dept, ok := byCode[code]; ok {
		return dept.Subcategories
	}
	return nil
}
