// Package report renders stored investigation data into shareable documents
// and registers the result as a Report entity on the case.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"inquest/internal/store"
)

// Supported output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatPDF      = "pdf"
)

// Options selects the format and sections of a generated report.
type Options struct {
	Format          string
	GeneratedBy     string
	IncludeEvidence bool
	IncludeAnalysis bool
	IncludeTimeline bool
	// OutputDir receives binary artifacts (PDF). Empty means alongside
	// nothing: binary formats then fail.
	OutputDir string
}

// Generate hydrates the case, renders it in the requested format, stores the
// Report entity, and returns it. Unknown format or absent case is an error.
func Generate(ctx context.Context, st *store.Store, invID string, opts Options) (*store.Report, error) {
	detail, err := st.Get(ctx, invID)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	if detail == nil {
		return nil, fmt.Errorf("generate report: investigation %s: %w", invID, store.ErrNotFound)
	}

	rep := &store.Report{
		InvestigationID: invID,
		Format:          opts.Format,
		GeneratedAt:     time.Now().UTC(),
		GeneratedBy:     opts.GeneratedBy,
		IncludeEvidence: opts.IncludeEvidence,
		IncludeAnalysis: opts.IncludeAnalysis,
		IncludeTimeline: opts.IncludeTimeline,
	}

	switch opts.Format {
	case FormatMarkdown:
		rep.Content = renderMarkdown(detail, opts)
	case FormatJSON:
		content, err := renderJSON(detail, opts)
		if err != nil {
			return nil, fmt.Errorf("generate report: %w", err)
		}
		rep.Content = content
	case FormatPDF:
		path, err := renderPDF(detail, opts)
		if err != nil {
			return nil, fmt.Errorf("generate report: %w", err)
		}
		rep.FilePath = path
	default:
		return nil, fmt.Errorf("generate report: unknown format %q", opts.Format)
	}

	if err := st.AddReport(ctx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

func renderJSON(detail *store.CaseDetail, opts Options) (string, error) {
	out := *detail
	if !opts.IncludeEvidence {
		out.Evidence = nil
	}
	if !opts.IncludeAnalysis {
		out.Analysis = nil
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func renderMarkdown(detail *store.CaseDetail, opts Options) string {
	var b strings.Builder
	inv := &detail.Investigation

	fmt.Fprintf(&b, "# Investigation Report: %s\n\n", inv.Title)
	fmt.Fprintf(&b, "- **Case:** %s\n", inv.ID)
	fmt.Fprintf(&b, "- **Status:** %s\n", inv.Status)
	fmt.Fprintf(&b, "- **Severity:** %s\n", inv.Severity)
	fmt.Fprintf(&b, "- **Priority:** %s\n", inv.Priority)
	if inv.Category != "" {
		fmt.Fprintf(&b, "- **Category:** %s\n", inv.Category)
	}
	fmt.Fprintf(&b, "- **Opened:** %s\n", inv.CreatedAt.Format(time.RFC3339))
	if inv.AssignedTo != "" {
		fmt.Fprintf(&b, "- **Assigned to:** %s\n", inv.AssignedTo)
	}
	b.WriteString("\n")

	if inv.Description != "" {
		fmt.Fprintf(&b, "## Summary\n\n%s\n\n", inv.Description)
	}
	writeList(&b, "Affected systems", inv.AffectedSystems)
	writeList(&b, "Root causes", inv.RootCauses)
	writeList(&b, "Contributing factors", inv.ContributingFactors)
	writeList(&b, "Recommendations", inv.Recommendations)

	if len(inv.Findings) > 0 {
		b.WriteString("## Findings\n\n")
		for _, f := range inv.Findings {
			fmt.Fprintf(&b, "### %s\n\n", f.Title)
			fmt.Fprintf(&b, "- Severity: %s, confidence: %.2f\n", f.Severity, f.Confidence)
			if f.Impact != "" {
				fmt.Fprintf(&b, "- Impact: %s\n", f.Impact)
			}
			if f.Description != "" {
				fmt.Fprintf(&b, "\n%s\n", f.Description)
			}
			b.WriteString("\n")
		}
	}

	if opts.IncludeEvidence && len(detail.Evidence) > 0 {
		b.WriteString("## Evidence\n\n")
		fmt.Fprintf(&b, "| ID | Type | Source | Collected |\n|---|---|---|---|\n")
		for _, ev := range detail.Evidence {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				ev.ID, ev.Type, ev.Source, ev.CreatedAt.Format(time.RFC3339))
		}
		b.WriteString("\n")
	}

	if opts.IncludeAnalysis && len(detail.Analysis) > 0 {
		b.WriteString("## Analysis\n\n")
		for _, ar := range detail.Analysis {
			fmt.Fprintf(&b, "### %s (%s, confidence %.2f)\n\n", ar.ID, ar.Type, ar.Confidence)
			if ar.Hypothesis != "" {
				fmt.Fprintf(&b, "Hypothesis: %s\n\n", ar.Hypothesis)
			}
			for _, c := range ar.Conclusions {
				fmt.Fprintf(&b, "- %s\n", c)
			}
			b.WriteString("\n")
		}
	}

	if opts.IncludeTimeline {
		b.WriteString("## Timeline\n\n")
		for _, item := range timeline(detail) {
			fmt.Fprintf(&b, "- %s — %s\n", item.At.Format(time.RFC3339), item.What)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}

type timelineItem struct {
	At   time.Time
	What string
}

// timeline interleaves case lifecycle, evidence, and analysis timestamps.
func timeline(detail *store.CaseDetail) []timelineItem {
	items := []timelineItem{{detail.CreatedAt, "investigation opened"}}
	for _, ev := range detail.Evidence {
		items = append(items, timelineItem{ev.CreatedAt, fmt.Sprintf("evidence %s collected (%s)", ev.ID, ev.Type)})
	}
	for _, ar := range detail.Analysis {
		items = append(items, timelineItem{ar.CreatedAt, fmt.Sprintf("analysis %s recorded (%s)", ar.ID, ar.Type)})
	}
	if !detail.UpdatedAt.Equal(detail.CreatedAt) {
		items = append(items, timelineItem{detail.UpdatedAt, "last update"})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].At.Before(items[j].At) })
	return items
}
