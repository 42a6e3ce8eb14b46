package store

import "time"

// Investigation status values.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusArchived  = "archived"
)

// Severity values, shared by investigations and findings.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Evidence collector kinds. Source matches the collector that produced the item.
const (
	EvidenceLogFiles       = "log_files"
	EvidenceCommandOutput  = "command_output"
	EvidenceFileSnapshot   = "file_snapshot"
	EvidenceSystemInfo     = "system_info"
	EvidenceProcessList    = "process_list"
	EvidenceNetworkState   = "network_state"
	EvidenceDiskUsage      = "disk_usage"
	EvidenceServiceStatus  = "service_status"
	EvidenceConfigSnapshot = "config_snapshot"
	EvidenceWebSnapshot    = "web_snapshot"
	EvidenceAPIResponse    = "api_response"
	EvidenceManual         = "manual"
)

// Analysis result types.
const (
	AnalysisTimeline    = "timeline"
	AnalysisCausal      = "causal"
	AnalysisPerformance = "performance"
	AnalysisSecurity    = "security"
	AnalysisCorrelation = "correlation"
	AnalysisStatistical = "statistical"
)

// Investigation is one forensic case. Findings are embedded in the case body;
// evidence, analysis, and reports live as separate files keyed by the case ID.
type Investigation struct {
	ID                  string         `json:"id"`
	Title               string         `json:"title"`
	Description         string         `json:"description,omitempty"`
	Status              string         `json:"status"`
	Severity            string         `json:"severity"`
	Category            string         `json:"category,omitempty"`
	Priority            string         `json:"priority"` // p1..p4
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	ReportedBy          string         `json:"reported_by,omitempty"`
	AssignedTo          string         `json:"assigned_to,omitempty"`
	AffectedSystems     []string       `json:"affected_systems,omitempty"`
	RootCauses          []string       `json:"root_causes,omitempty"`
	ContributingFactors []string       `json:"contributing_factors,omitempty"`
	Recommendations     []string       `json:"recommendations,omitempty"`
	Findings            []Finding      `json:"findings,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

// CaseDetail is an Investigation hydrated with its stored dependents.
// It exists only in memory; the body file on disk holds the Investigation alone.
type CaseDetail struct {
	Investigation
	Evidence []Evidence       `json:"evidence,omitempty"`
	Analysis []AnalysisResult `json:"analysis,omitempty"`
}

// CustodyEntry is one append-only chain-of-custody record on an evidence item.
type CustodyEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Note      string    `json:"note,omitempty"`
}

// EvidenceMetadata describes how and when an evidence item was captured.
type EvidenceMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"size,omitempty"`
	Checksum  string    `json:"checksum,omitempty"`
	Collector string    `json:"collector,omitempty"`
}

// Evidence is one unit of collected evidence, owned by exactly one investigation.
type Evidence struct {
	ID              string           `json:"id"`
	InvestigationID string           `json:"investigation_id"`
	Type            string           `json:"type"`
	Source          string           `json:"source"`
	Path            string           `json:"path,omitempty"`
	Content         any              `json:"content,omitempty"`
	Metadata        EvidenceMetadata `json:"metadata"`
	ChainOfCustody  []CustodyEntry   `json:"chain_of_custody,omitempty"`
	Tags            []string         `json:"tags,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// AnalysisResult is one analysis pass over an investigation's evidence.
type AnalysisResult struct {
	ID                    string    `json:"id"`
	InvestigationID       string    `json:"investigation_id"`
	Type                  string    `json:"type"`
	Hypothesis            string    `json:"hypothesis,omitempty"`
	Confidence            float64   `json:"confidence"`
	SupportingEvidence    []string  `json:"supporting_evidence,omitempty"`
	ContradictingEvidence []string  `json:"contradicting_evidence,omitempty"`
	Conclusions           []string  `json:"conclusions,omitempty"`
	Recommendations       []string  `json:"recommendations,omitempty"`
	Methodology           string    `json:"methodology,omitempty"`
	Limitations           []string  `json:"limitations,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Finding is a conclusion drawn from evidence, stored embedded in the case body.
type Finding struct {
	ID              string   `json:"id"`
	InvestigationID string   `json:"investigation_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	Severity        string   `json:"severity"`
	Category        string   `json:"category,omitempty"`
	EvidenceIDs     []string `json:"evidence_ids,omitempty"`
	Confidence      float64  `json:"confidence"`
	Impact          string   `json:"impact,omitempty"`
	Likelihood      string   `json:"likelihood,omitempty"`
}

// Report is one rendered investigation report. Content holds the full payload
// for text formats; binary formats reference FilePath instead.
type Report struct {
	ID              string    `json:"id"`
	InvestigationID string    `json:"investigation_id"`
	Format          string    `json:"format"`
	Content         string    `json:"content,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
	GeneratedBy     string    `json:"generated_by,omitempty"`
	IncludeEvidence bool      `json:"include_evidence"`
	IncludeAnalysis bool      `json:"include_analysis"`
	IncludeTimeline bool      `json:"include_timeline"`
	FilePath        string    `json:"file_path,omitempty"`
}

// IndexEntry is the projection of an Investigation kept in the case index so
// listing and filtering never load full case bodies.
type IndexEntry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Status    string    `json:"status"`
	Severity  string    `json:"severity"`
	Category  string    `json:"category,omitempty"`
	Priority  string    `json:"priority"`
}

func entryFor(inv *Investigation) IndexEntry {
	return IndexEntry{
		ID:        inv.ID,
		CreatedAt: inv.CreatedAt,
		UpdatedAt: inv.UpdatedAt,
		Status:    inv.Status,
		Severity:  inv.Severity,
		Category:  inv.Category,
		Priority:  inv.Priority,
	}
}
