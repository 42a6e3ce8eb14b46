package report

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inquest/internal/store"
)

func seedStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	st, err := store.Open(store.Options{Root: t.TempDir(), MaxInvestigations: 10}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	created := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	inv := &store.Investigation{
		ID:          "inv-report",
		Title:       "Payment gateway latency",
		Description: "p99 latency tripled after the 14:00 deploy.",
		Severity:    store.SeverityHigh,
		Priority:    "p1",
		Category:    "performance",
		CreatedAt:   created,
		Recommendations: []string{
			"roll back connection pool change",
		},
	}
	require.NoError(t, st.Create(ctx, inv))
	require.NoError(t, st.AddFinding(ctx, &store.Finding{
		InvestigationID: "inv-report",
		Title:           "Pool size misconfigured",
		Severity:        store.SeverityHigh,
		Confidence:      0.85,
		Impact:          "checkout timeouts",
	}))
	require.NoError(t, st.AddEvidence(ctx, &store.Evidence{
		InvestigationID: "inv-report",
		Type:            store.EvidenceCommandOutput,
		Source:          "kubectl top pods",
		CreatedAt:       created.Add(10 * time.Minute),
	}))
	require.NoError(t, st.AddAnalysis(ctx, &store.AnalysisResult{
		InvestigationID: "inv-report",
		Type:            store.AnalysisPerformance,
		Confidence:      0.7,
		Conclusions:     []string{"pool exhaustion under peak load"},
		CreatedAt:       created.Add(20 * time.Minute),
	}))
	return st, "inv-report"
}

func TestGenerate_Markdown(t *testing.T) {
	st, invID := seedStore(t)
	rep, err := Generate(context.Background(), st, invID, Options{
		Format:          FormatMarkdown,
		GeneratedBy:     "tester",
		IncludeEvidence: true,
		IncludeAnalysis: true,
		IncludeTimeline: true,
	})
	require.NoError(t, err)

	assert.Equal(t, FormatMarkdown, rep.Format)
	assert.Contains(t, rep.Content, "# Investigation Report: Payment gateway latency")
	assert.Contains(t, rep.Content, "## Findings")
	assert.Contains(t, rep.Content, "Pool size misconfigured")
	assert.Contains(t, rep.Content, "## Evidence")
	assert.Contains(t, rep.Content, "kubectl top pods")
	assert.Contains(t, rep.Content, "## Analysis")
	assert.Contains(t, rep.Content, "## Timeline")
	assert.Contains(t, rep.Content, "investigation opened")

	// The report is registered on the case.
	reports, err := st.ListReports(context.Background(), invID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, rep.ID, reports[0].ID)
	assert.Equal(t, "tester", reports[0].GeneratedBy)
}

func TestGenerate_MarkdownSectionsRespectFlags(t *testing.T) {
	st, invID := seedStore(t)
	rep, err := Generate(context.Background(), st, invID, Options{Format: FormatMarkdown})
	require.NoError(t, err)

	assert.NotContains(t, rep.Content, "## Evidence")
	assert.NotContains(t, rep.Content, "## Analysis")
	assert.NotContains(t, rep.Content, "## Timeline")
}

func TestGenerate_JSON(t *testing.T) {
	st, invID := seedStore(t)
	rep, err := Generate(context.Background(), st, invID, Options{
		Format:          FormatJSON,
		IncludeEvidence: true,
	})
	require.NoError(t, err)

	var decoded store.CaseDetail
	require.NoError(t, json.Unmarshal([]byte(rep.Content), &decoded))
	assert.Equal(t, invID, decoded.ID)
	assert.Len(t, decoded.Evidence, 1)
	assert.Empty(t, decoded.Analysis, "analysis excluded by flags")
}

func TestGenerate_PDF(t *testing.T) {
	st, invID := seedStore(t)
	outDir := t.TempDir()
	rep, err := Generate(context.Background(), st, invID, Options{
		Format:          FormatPDF,
		OutputDir:       outDir,
		IncludeEvidence: true,
		IncludeAnalysis: true,
	})
	require.NoError(t, err)

	assert.Empty(t, rep.Content, "binary formats are not inlined")
	require.NotEmpty(t, rep.FilePath)
	data, err := os.ReadFile(rep.FilePath)
	require.NoError(t, err)
	assert.True(t, len(data) > 0 && string(data[:4]) == "%PDF", "output is not a PDF")
}

func TestGenerate_PDFWithoutOutputDir(t *testing.T) {
	st, invID := seedStore(t)
	_, err := Generate(context.Background(), st, invID, Options{Format: FormatPDF})
	require.Error(t, err)
}

func TestGenerate_UnknownFormat(t *testing.T) {
	st, invID := seedStore(t)
	_, err := Generate(context.Background(), st, invID, Options{Format: "docx"})
	require.Error(t, err)
}

func TestGenerate_AbsentCase(t *testing.T) {
	st, _ := seedStore(t)
	_, err := Generate(context.Background(), st, "inv-missing", Options{Format: FormatMarkdown})
	require.ErrorIs(t, err, store.ErrNotFound)
}
