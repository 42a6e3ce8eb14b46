package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestCheck_HealthyStore(t *testing.T) {
	s := newTestStore(t, 10)
	ctx := context.Background()
	seedCase(t, s, "inv-ok", time.Now().UTC())
	if err := s.AddEvidence(ctx, &Evidence{InvestigationID: "inv-ok", Type: EvidenceManual, Source: "analyst"}); err != nil {
		t.Fatalf("AddEvidence: %v", err)
	}

	problems, err := s.Check(ctx)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(problems) != 0 {
		t.Fatalf("healthy store reported problems: %v", problems)
	}
}

func TestCheck_DetectsDanglingAndOrphan(t *testing.T) {
	s := newTestStore(t, 10)
	ctx := context.Background()
	seedCase(t, s, "inv-dangle", time.Now().UTC())

	// Dangling: indexed case whose body file is gone.
	if err := os.Remove(s.investigationPath("inv-dangle")); err != nil {
		t.Fatalf("remove body: %v", err)
	}
	// Orphan: a body file the index never admitted.
	orphan, err := Encode(&Investigation{ID: "inv-orphan", Title: "orphan", Severity: SeverityLow, Priority: "p4"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := os.WriteFile(s.investigationPath("inv-orphan"), orphan, 0o644); err != nil {
		t.Fatalf("write orphan: %v", err)
	}

	problems, err := s.Check(ctx)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	var dangling, orphaned bool
	for _, p := range problems {
		if strings.Contains(p, "inv-dangle") && strings.Contains(p, "dangling") {
			dangling = true
		}
		if strings.Contains(p, "inv-orphan") && strings.Contains(p, "orphaned") {
			orphaned = true
		}
	}
	if !dangling || !orphaned {
		t.Fatalf("problems = %v (dangling=%v orphaned=%v)", problems, dangling, orphaned)
	}
}

func TestCheck_DetectsMissingDependentFile(t *testing.T) {
	s := newTestStore(t, 10)
	ctx := context.Background()
	seedCase(t, s, "inv-dep", time.Now().UTC())
	ev := &Evidence{InvestigationID: "inv-dep", Type: EvidenceManual, Source: "analyst"}
	if err := s.AddEvidence(ctx, ev); err != nil {
		t.Fatalf("AddEvidence: %v", err)
	}
	if err := os.Remove(s.entityPath(dirEvidence, "inv-dep", ev.ID)); err != nil {
		t.Fatalf("remove evidence file: %v", err)
	}

	problems, err := s.Check(ctx)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	found := false
	for _, p := range problems {
		if strings.Contains(p, ev.ID) {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing dependent not reported: %v", problems)
	}
}
