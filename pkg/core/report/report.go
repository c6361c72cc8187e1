// Package report renders comparison results as a markdown document and,
// via goldmark, as HTML. It is a presentation collaborator of the comparison
// engine, not part of it.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"budget_explorer/pkg/core/comparison"

	"github.com/yuin/goldmark"
)

// BuildMarkdown assembles a year-over-year comparison report. Sections with
// no data ("not applicable" dimensions) are omitted rather than rendered as
// zero-filled tables.
func BuildMarkdown(entity string, baseYear, targetYear int, summary *comparison.Summary, departments, revenueSources []comparison.Item) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s budget: FY%d vs FY%d\n\n", entity, baseYear, targetYear)

	b.WriteString("## Top-Level Figures\n\n")
	writeItemLine(&b, summary.TotalAppropriations)
	writeItemLine(&b, summary.GrossAppropriations)
	if summary.OperatingAppropriations != nil {
		writeItemLine(&b, summary.OperatingAppropriations)
	}
	if summary.TotalRevenue != nil {
		writeItemLine(&b, summary.TotalRevenue)
	}
	b.WriteString("\n")

	if len(summary.FundCategories) > 0 {
		b.WriteString("## Fund Categories\n\n")
		writeItemTable(&b, summary.FundCategories)
	}

	if len(departments) > 0 {
		b.WriteString("## Departments\n\n")
		writeItemTable(&b, departments)
	}

	// nil means revenue is not applicable for this pair of years; an empty
	// non-nil slice still gets its header so "no sources" is visible.
	if revenueSources != nil {
		b.WriteString("## Revenue Sources\n\n")
		writeItemTable(&b, revenueSources)
	}

	return b.String()
}

// RenderHTML converts report markdown to HTML.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

func writeItemLine(b *strings.Builder, item *comparison.Item) {
	fmt.Fprintf(b, "- **%s**: %s -> %s (%s)\n",
		item.Name, amount(item.BaseAmount), amount(item.TargetAmount), deltaLabel(*item))
}

func writeItemTable(b *strings.Builder, items []comparison.Item) {
	b.WriteString("| Name | Base | Target | Delta | Status |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, item := range items {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
			item.Name, amount(item.BaseAmount), amount(item.TargetAmount), deltaLabel(item), item.Status)
	}
	b.WriteString("\n")
}

func amount(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f", *v)
}

func deltaLabel(item comparison.Item) string {
	if item.Delta == nil {
		return "n/a"
	}
	if item.DeltaPct == nil {
		return fmt.Sprintf("%+.0f", *item.Delta)
	}
	return fmt.Sprintf("%+.0f (%+.1f%%)", *item.Delta, *item.DeltaPct)
}
