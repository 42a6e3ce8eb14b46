package report

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/phpdave11/gofpdf"

	"inquest/internal/store"
)

// renderPDF writes the case as a PDF under opts.OutputDir and returns the
// file path. PDF is a binary artifact: it is referenced by the Report's
// FilePath, never inlined into Content.
func renderPDF(detail *store.CaseDetail, opts Options) (string, error) {
	if opts.OutputDir == "" {
		return "", fmt.Errorf("pdf output dir not configured")
	}
	inv := &detail.Investigation

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Investigation "+inv.ID, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, "Investigation Report: "+inv.Title, "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	meta := [][2]string{
		{"Case", inv.ID},
		{"Status", inv.Status},
		{"Severity", inv.Severity},
		{"Priority", inv.Priority},
		{"Opened", inv.CreatedAt.Format(time.RFC3339)},
		{"Generated", time.Now().UTC().Format(time.RFC3339)},
	}
	for _, kv := range meta {
		pdf.CellFormat(30, 6, kv[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, kv[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if inv.Description != "" {
		section(pdf, "Summary")
		pdf.MultiCell(0, 5, inv.Description, "", "L", false)
		pdf.Ln(2)
	}

	if len(inv.Findings) > 0 {
		section(pdf, "Findings")
		for _, f := range inv.Findings {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.MultiCell(0, 5, fmt.Sprintf("%s [%s, confidence %.2f]", f.Title, f.Severity, f.Confidence), "", "L", false)
			pdf.SetFont("Helvetica", "", 10)
			if f.Description != "" {
				pdf.MultiCell(0, 5, f.Description, "", "L", false)
			}
			pdf.Ln(1)
		}
	}

	if opts.IncludeEvidence && len(detail.Evidence) > 0 {
		section(pdf, "Evidence")
		for _, ev := range detail.Evidence {
			pdf.MultiCell(0, 5, fmt.Sprintf("%s  %s  %s  %s",
				ev.ID, ev.Type, ev.Source, ev.CreatedAt.Format(time.RFC3339)), "", "L", false)
		}
		pdf.Ln(2)
	}

	if opts.IncludeAnalysis && len(detail.Analysis) > 0 {
		section(pdf, "Analysis")
		for _, ar := range detail.Analysis {
			pdf.MultiCell(0, 5, fmt.Sprintf("%s (%s, confidence %.2f)", ar.ID, ar.Type, ar.Confidence), "", "L", false)
			for _, c := range ar.Conclusions {
				pdf.MultiCell(0, 5, "  - "+c, "", "L", false)
			}
		}
	}

	path := filepath.Join(opts.OutputDir, fmt.Sprintf("%s-%d.pdf", inv.ID, time.Now().Unix()))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf %s: %w", path, err)
	}
	return path, nil
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
}
