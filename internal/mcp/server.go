// Package mcp exposes the investigation store as MCP tools over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"inquest/internal/collect"
	"inquest/internal/logging"
	"inquest/internal/report"
	"inquest/internal/store"
)

// Server wraps the MCP SDK server around one opened store.
type Server struct {
	MCPServer *sdkmcp.Server
	store     *store.Store
	reportDir string
}

// NewServer builds the MCP server and registers the investigation tools.
// reportDir receives binary report artifacts (PDF).
func NewServer(st *store.Store, version, reportDir string) *Server {
	s := &Server{store: st, reportDir: reportDir}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "inquest", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves MCP over stdio until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	logging.New("mcp").Info("starting inquest MCP server over stdio")
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "create_investigation",
		Description: "Open a new investigation case. Evicts the oldest case first if the retention ceiling is reached.",
	}, s.handleCreateInvestigation)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_investigation",
		Description: "Fetch one investigation with its evidence, analysis, and findings. Absent IDs return found=false, not an error.",
	}, s.handleGetInvestigation)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_investigations",
		Description: "List investigations newest-first, filtered by status/category/severity/priority and paged by offset/limit.",
	}, s.handleListInvestigations)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "update_investigation",
		Description: "Merge the provided fields into an existing case. Only supplied fields change; updated_at is refreshed.",
	}, s.handleUpdateInvestigation)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "delete_investigation",
		Description: "Delete a case and cascade to all of its evidence, analysis, and reports. Idempotent.",
	}, s.handleDeleteInvestigation)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "add_evidence",
		Description: "Attach a manually supplied evidence item to an investigation.",
	}, s.handleAddEvidence)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "collect_evidence",
		Description: "Run a collector (command, file, sysinfo, web) and attach the captured evidence to an investigation.",
	}, s.handleCollectEvidence)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "search_evidence",
		Description: "Search one investigation's evidence by type set, time window, and substring match.",
	}, s.handleSearchEvidence)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "add_analysis",
		Description: "Record an analysis result (timeline, causal, performance, security, correlation, statistical) on an investigation.",
	}, s.handleAddAnalysis)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "add_finding",
		Description: "Append a finding to an investigation's embedded findings list.",
	}, s.handleAddFinding)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "generate_report",
		Description: "Render an investigation report (markdown, json, or pdf) and store it on the case.",
	}, s.handleGenerateReport)
}

// --- Tool input/output types ---

type createInvestigationInput struct {
	ID              string         `json:"id,omitempty" jsonschema:"case ID; generated when empty"`
	Title           string         `json:"title" jsonschema:"short case title"`
	Description     string         `json:"description,omitempty"`
	Severity        string         `json:"severity" jsonschema:"low, medium, high, or critical"`
	Category        string         `json:"category,omitempty"`
	Priority        string         `json:"priority,omitempty" jsonschema:"p1..p4"`
	ReportedBy      string         `json:"reported_by,omitempty"`
	AssignedTo      string         `json:"assigned_to,omitempty"`
	AffectedSystems []string       `json:"affected_systems,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

type createInvestigationOutput struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleCreateInvestigation(ctx context.Context, _ *sdkmcp.CallToolRequest, in createInvestigationInput) (*sdkmcp.CallToolResult, createInvestigationOutput, error) {
	inv := &store.Investigation{
		ID:              in.ID,
		Title:           in.Title,
		Description:     in.Description,
		Severity:        in.Severity,
		Category:        in.Category,
		Priority:        in.Priority,
		ReportedBy:      in.ReportedBy,
		AssignedTo:      in.AssignedTo,
		AffectedSystems: in.AffectedSystems,
		Metadata:        in.Metadata,
	}
	if inv.Priority == "" {
		inv.Priority = "p3"
	}
	if err := s.store.Create(ctx, inv); err != nil {
		return nil, createInvestigationOutput{}, err
	}
	return nil, createInvestigationOutput{ID: inv.ID, Status: inv.Status, CreatedAt: inv.CreatedAt}, nil
}

type getInvestigationInput struct {
	ID string `json:"id" jsonschema:"case ID"`
}

type getInvestigationOutput struct {
	Found bool              `json:"found"`
	Case  *store.CaseDetail `json:"case,omitempty"`
}

func (s *Server) handleGetInvestigation(ctx context.Context, _ *sdkmcp.CallToolRequest, in getInvestigationInput) (*sdkmcp.CallToolResult, getInvestigationOutput, error) {
	detail, err := s.store.Get(ctx, in.ID)
	if err != nil {
		return nil, getInvestigationOutput{}, err
	}
	return nil, getInvestigationOutput{Found: detail != nil, Case: detail}, nil
}

type listInvestigationsInput struct {
	Status        string `json:"status,omitempty"`
	Category      string `json:"category,omitempty"`
	Severity      string `json:"severity,omitempty"`
	Priority      string `json:"priority,omitempty"`
	CreatedAfter  string `json:"created_after,omitempty" jsonschema:"RFC 3339 lower bound on created_at"`
	CreatedBefore string `json:"created_before,omitempty" jsonschema:"RFC 3339 upper bound on created_at"`
	Offset        int    `json:"offset,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

type listInvestigationsOutput struct {
	Total int                 `json:"total"`
	Cases []*store.CaseDetail `json:"cases"`
}

func (s *Server) handleListInvestigations(ctx context.Context, _ *sdkmcp.CallToolRequest, in listInvestigationsInput) (*sdkmcp.CallToolResult, listInvestigationsOutput, error) {
	f := store.ListFilter{
		Status:   in.Status,
		Category: in.Category,
		Severity: in.Severity,
		Priority: in.Priority,
		Offset:   in.Offset,
		Limit:    in.Limit,
	}
	var err error
	if f.CreatedAfter, err = parseOptionalTime(in.CreatedAfter); err != nil {
		return nil, listInvestigationsOutput{}, fmt.Errorf("created_after: %w", err)
	}
	if f.CreatedBefore, err = parseOptionalTime(in.CreatedBefore); err != nil {
		return nil, listInvestigationsOutput{}, fmt.Errorf("created_before: %w", err)
	}
	cases, err := s.store.List(ctx, f)
	if err != nil {
		return nil, listInvestigationsOutput{}, err
	}
	return nil, listInvestigationsOutput{Total: len(cases), Cases: cases}, nil
}

type updateInvestigationInput struct {
	ID                  string         `json:"id" jsonschema:"case ID"`
	Title               *string        `json:"title,omitempty"`
	Description         *string        `json:"description,omitempty"`
	Status              *string        `json:"status,omitempty" jsonschema:"active, completed, or archived"`
	Severity            *string        `json:"severity,omitempty"`
	Category            *string        `json:"category,omitempty"`
	Priority            *string        `json:"priority,omitempty"`
	AssignedTo          *string        `json:"assigned_to,omitempty"`
	AffectedSystems     []string       `json:"affected_systems,omitempty"`
	RootCauses          []string       `json:"root_causes,omitempty"`
	ContributingFactors []string       `json:"contributing_factors,omitempty"`
	Recommendations     []string       `json:"recommendations,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

type updateInvestigationOutput struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) handleUpdateInvestigation(ctx context.Context, _ *sdkmcp.CallToolRequest, in updateInvestigationInput) (*sdkmcp.CallToolResult, updateInvestigationOutput, error) {
	inv, err := s.store.Update(ctx, in.ID, store.CasePatch{
		Title:               in.Title,
		Description:         in.Description,
		Status:              in.Status,
		Severity:            in.Severity,
		Category:            in.Category,
		Priority:            in.Priority,
		AssignedTo:          in.AssignedTo,
		AffectedSystems:     in.AffectedSystems,
		RootCauses:          in.RootCauses,
		ContributingFactors: in.ContributingFactors,
		Recommendations:     in.Recommendations,
		Metadata:            in.Metadata,
	})
	if err != nil {
		return nil, updateInvestigationOutput{}, err
	}
	return nil, updateInvestigationOutput{ID: inv.ID, UpdatedAt: inv.UpdatedAt}, nil
}

type deleteInvestigationInput struct {
	ID string `json:"id" jsonschema:"case ID"`
}

type deleteInvestigationOutput struct {
	OK bool `json:"ok"`
}

func (s *Server) handleDeleteInvestigation(ctx context.Context, _ *sdkmcp.CallToolRequest, in deleteInvestigationInput) (*sdkmcp.CallToolResult, deleteInvestigationOutput, error) {
	if err := s.store.Delete(ctx, in.ID); err != nil {
		return nil, deleteInvestigationOutput{}, err
	}
	return nil, deleteInvestigationOutput{OK: true}, nil
}

type addEvidenceInput struct {
	InvestigationID string   `json:"investigation_id" jsonschema:"owning case ID"`
	Type            string   `json:"type" jsonschema:"evidence type, e.g. manual, log_files, api_response"`
	Source          string   `json:"source"`
	Path            string   `json:"path,omitempty"`
	Content         any      `json:"content,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Actor           string   `json:"actor,omitempty" jsonschema:"who supplied the evidence, for the custody chain"`
}

type addEvidenceOutput struct {
	ID string `json:"id"`
}

func (s *Server) handleAddEvidence(ctx context.Context, _ *sdkmcp.CallToolRequest, in addEvidenceInput) (*sdkmcp.CallToolResult, addEvidenceOutput, error) {
	now := time.Now().UTC()
	actor := in.Actor
	if actor == "" {
		actor = "mcp-client"
	}
	ev := &store.Evidence{
		InvestigationID: in.InvestigationID,
		Type:            in.Type,
		Source:          in.Source,
		Path:            in.Path,
		Content:         in.Content,
		Tags:            in.Tags,
		CreatedAt:       now,
		Metadata:        store.EvidenceMetadata{Timestamp: now, Collector: "manual"},
		ChainOfCustody: []store.CustodyEntry{{
			Timestamp: now, Actor: actor, Action: "submitted",
		}},
	}
	if ev.Type == "" {
		ev.Type = store.EvidenceManual
	}
	if err := s.store.AddEvidence(ctx, ev); err != nil {
		return nil, addEvidenceOutput{}, err
	}
	return nil, addEvidenceOutput{ID: ev.ID}, nil
}

type collectEvidenceInput struct {
	InvestigationID string   `json:"investigation_id" jsonschema:"owning case ID"`
	Collector       string   `json:"collector" jsonschema:"command, file, sysinfo, or web"`
	Command         string   `json:"command,omitempty" jsonschema:"program for the command collector"`
	Args            []string `json:"args,omitempty"`
	Path            string   `json:"path,omitempty" jsonschema:"target for the file collector"`
	URL             string   `json:"url,omitempty" jsonschema:"target for the web collector"`
	Tags            []string `json:"tags,omitempty"`
}

type collectEvidenceOutput struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func (s *Server) handleCollectEvidence(ctx context.Context, _ *sdkmcp.CallToolRequest, in collectEvidenceInput) (*sdkmcp.CallToolResult, collectEvidenceOutput, error) {
	var c collect.Collector
	switch in.Collector {
	case "command":
		c = collect.CommandCollector{Command: in.Command, Args: in.Args}
	case "file":
		c = collect.FileCollector{Path: in.Path}
	case "sysinfo":
		c = collect.SysInfoCollector{}
	case "web":
		c = collect.WebSnapshotCollector{URL: in.URL}
	default:
		return nil, collectEvidenceOutput{}, fmt.Errorf("unknown collector %q", in.Collector)
	}
	ev, err := c.Collect(ctx)
	if err != nil {
		return nil, collectEvidenceOutput{}, fmt.Errorf("collect_evidence: %w", err)
	}
	ev.InvestigationID = in.InvestigationID
	ev.Tags = append(ev.Tags, in.Tags...)
	if err := s.store.AddEvidence(ctx, ev); err != nil {
		return nil, collectEvidenceOutput{}, err
	}
	return nil, collectEvidenceOutput{ID: ev.ID, Type: ev.Type}, nil
}

type searchEvidenceInput struct {
	InvestigationID string   `json:"investigation_id" jsonschema:"case whose evidence to search"`
	Types           []string `json:"types,omitempty"`
	After           string   `json:"after,omitempty" jsonschema:"RFC 3339 lower bound on created_at"`
	Before          string   `json:"before,omitempty" jsonschema:"RFC 3339 upper bound on created_at"`
	Contains        string   `json:"contains,omitempty" jsonschema:"case-insensitive substring matched against source, content, metadata"`
}

type searchEvidenceOutput struct {
	Total   int              `json:"total"`
	Matches []store.Evidence `json:"matches"`
}

func (s *Server) handleSearchEvidence(ctx context.Context, _ *sdkmcp.CallToolRequest, in searchEvidenceInput) (*sdkmcp.CallToolResult, searchEvidenceOutput, error) {
	q := store.EvidenceQuery{Types: in.Types, Contains: in.Contains}
	var err error
	if q.After, err = parseOptionalTime(in.After); err != nil {
		return nil, searchEvidenceOutput{}, fmt.Errorf("after: %w", err)
	}
	if q.Before, err = parseOptionalTime(in.Before); err != nil {
		return nil, searchEvidenceOutput{}, fmt.Errorf("before: %w", err)
	}
	matches, err := s.store.SearchEvidence(ctx, in.InvestigationID, q)
	if err != nil {
		return nil, searchEvidenceOutput{}, err
	}
	return nil, searchEvidenceOutput{Total: len(matches), Matches: matches}, nil
}

type addAnalysisInput struct {
	InvestigationID       string   `json:"investigation_id" jsonschema:"owning case ID"`
	Type                  string   `json:"type" jsonschema:"timeline, causal, performance, security, correlation, or statistical"`
	Hypothesis            string   `json:"hypothesis,omitempty"`
	Confidence            float64  `json:"confidence" jsonschema:"confidence in [0,1]"`
	SupportingEvidence    []string `json:"supporting_evidence,omitempty"`
	ContradictingEvidence []string `json:"contradicting_evidence,omitempty"`
	Conclusions           []string `json:"conclusions,omitempty"`
	Recommendations       []string `json:"recommendations,omitempty"`
	Methodology           string   `json:"methodology,omitempty"`
	Limitations           []string `json:"limitations,omitempty"`
}

type addAnalysisOutput struct {
	ID string `json:"id"`
}

func (s *Server) handleAddAnalysis(ctx context.Context, _ *sdkmcp.CallToolRequest, in addAnalysisInput) (*sdkmcp.CallToolResult, addAnalysisOutput, error) {
	ar := &store.AnalysisResult{
		InvestigationID:       in.InvestigationID,
		Type:                  in.Type,
		Hypothesis:            in.Hypothesis,
		Confidence:            in.Confidence,
		SupportingEvidence:    in.SupportingEvidence,
		ContradictingEvidence: in.ContradictingEvidence,
		Conclusions:           in.Conclusions,
		Recommendations:       in.Recommendations,
		Methodology:           in.Methodology,
		Limitations:           in.Limitations,
	}
	if err := s.store.AddAnalysis(ctx, ar); err != nil {
		return nil, addAnalysisOutput{}, err
	}
	return nil, addAnalysisOutput{ID: ar.ID}, nil
}

type addFindingInput struct {
	InvestigationID string   `json:"investigation_id" jsonschema:"owning case ID"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	Severity        string   `json:"severity"`
	Category        string   `json:"category,omitempty"`
	EvidenceIDs     []string `json:"evidence_ids,omitempty"`
	Confidence      float64  `json:"confidence" jsonschema:"confidence in [0,1]"`
	Impact          string   `json:"impact,omitempty"`
	Likelihood      string   `json:"likelihood,omitempty"`
}

type addFindingOutput struct {
	ID string `json:"id"`
}

func (s *Server) handleAddFinding(ctx context.Context, _ *sdkmcp.CallToolRequest, in addFindingInput) (*sdkmcp.CallToolResult, addFindingOutput, error) {
	f := &store.Finding{
		InvestigationID: in.InvestigationID,
		Title:           in.Title,
		Description:     in.Description,
		Severity:        in.Severity,
		Category:        in.Category,
		EvidenceIDs:     in.EvidenceIDs,
		Confidence:      in.Confidence,
		Impact:          in.Impact,
		Likelihood:      in.Likelihood,
	}
	if err := s.store.AddFinding(ctx, f); err != nil {
		return nil, addFindingOutput{}, err
	}
	return nil, addFindingOutput{ID: f.ID}, nil
}

type generateReportInput struct {
	InvestigationID string `json:"investigation_id" jsonschema:"case to report on"`
	Format          string `json:"format" jsonschema:"markdown, json, or pdf"`
	GeneratedBy     string `json:"generated_by,omitempty"`
	IncludeEvidence bool   `json:"include_evidence,omitempty"`
	IncludeAnalysis bool   `json:"include_analysis,omitempty"`
	IncludeTimeline bool   `json:"include_timeline,omitempty"`
}

type generateReportOutput struct {
	ID       string `json:"id"`
	Format   string `json:"format"`
	FilePath string `json:"file_path,omitempty"`
	Content  string `json:"content,omitempty"`
}

func (s *Server) handleGenerateReport(ctx context.Context, _ *sdkmcp.CallToolRequest, in generateReportInput) (*sdkmcp.CallToolResult, generateReportOutput, error) {
	rep, err := report.Generate(ctx, s.store, in.InvestigationID, report.Options{
		Format:          in.Format,
		GeneratedBy:     in.GeneratedBy,
		IncludeEvidence: in.IncludeEvidence,
		IncludeAnalysis: in.IncludeAnalysis,
		IncludeTimeline: in.IncludeTimeline,
		OutputDir:       s.reportDir,
	})
	if err != nil {
		return nil, generateReportOutput{}, err
	}
	return nil, generateReportOutput{ID: rep.ID, Format: rep.Format, FilePath: rep.FilePath, Content: rep.Content}, nil
}

func parseOptionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("expected RFC 3339 timestamp")
	}
	return t, nil
}
