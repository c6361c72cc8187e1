package report

import (
	"strings"
	"testing"

	"budget_explorer/pkg/core/comparison"
)

func floatPtr(f float64) *float64 { return &f }

func sampleSummary() *comparison.Summary {
	total := comparison.Item{
		ID: "total_appropriations", Name: "Total Appropriations",
		BaseAmount: floatPtr(1000), TargetAmount: floatPtr(1100),
		Delta: floatPtr(100), DeltaPct: floatPtr(10), Status: comparison.StatusCommon,
	}
	gross := comparison.Item{
		ID: "gross_appropriations", Name: "Gross Appropriations",
		BaseAmount: floatPtr(1050), TargetAmount: floatPtr(1150),
		Delta: floatPtr(100), DeltaPct: floatPtr(9.5), Status: comparison.StatusCommon,
	}
	return &comparison.Summary{
		TotalAppropriations: &total,
		GrossAppropriations: &gross,
		FundCategories: []comparison.Item{
			{ID: "general", Name: "general", BaseAmount: floatPtr(900), TargetAmount: floatPtr(950),
				Delta: floatPtr(50), DeltaPct: floatPtr(5.6), Status: comparison.StatusCommon},
		},
	}
}

func TestBuildMarkdownOmitsAbsentDimensions(t *testing.T) {
	md := BuildMarkdown("test-city", 2023, 2024, sampleSummary(), nil, nil)

	if !strings.Contains(md, "# test-city budget: FY2023 vs FY2024") {
		t.Errorf("Expected report title, got:\n%s", md)
	}
	if !strings.Contains(md, "Total Appropriations") {
		t.Error("Expected total appropriations line")
	}
	if strings.Contains(md, "Operating Appropriations") {
		t.Error("Expected absent operating figure to be omitted")
	}
	if strings.Contains(md, "## Revenue Sources") {
		t.Error("Expected nil revenue comparison to omit the section")
	}

	// Non-nil empty slice means applicable but empty: header stays.
	md = BuildMarkdown("test-city", 2023, 2024, sampleSummary(), nil, []comparison.Item{})
	if !strings.Contains(md, "## Revenue Sources") {
		t.Error("Expected empty-but-applicable revenue section header")
	}
}

func TestBuildMarkdownOneSidedItems(t *testing.T) {
	departments := []comparison.Item{
		{ID: "55", Name: "Aviation", TargetAmount: floatPtr(400), Status: comparison.StatusAdded},
	}
	md := BuildMarkdown("test-city", 2023, 2024, sampleSummary(), departments, nil)

	if !strings.Contains(md, "| Aviation | n/a | 400 | n/a | added |") {
		t.Errorf("Expected added department row with n/a amounts, got:\n%s", md)
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML("# Title\n\n- item\n")
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	if !strings.Contains(html, "<h1>") || !strings.Contains(html, "<li>") {
		t.Errorf("Expected rendered HTML, got: %s", html)
	}
}
