package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Check verifies the storage root: every index decodes, every indexed case
// has a body, every dependent reference has a file, and orphaned bodies are
// reported. It returns one human-readable problem per inconsistency and a
// non-nil error only for IO failures — an unhealthy store is a result, not
// an error.
func (s *Store) Check(ctx context.Context) ([]string, error) {
	var problems []string

	lock, err := s.locks.Acquire(ctx, s.investigationIndexPath())
	if err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	idx, err := s.loadCaseIndex()
	lock.Release()
	if err != nil {
		problems = append(problems, err.Error())
		idx = &caseIndex{}
	}

	indexed := make(map[string]bool, len(idx.Entries))
	for _, e := range idx.Entries {
		indexed[e.ID] = true
		if _, err := os.Stat(s.investigationPath(e.ID)); os.IsNotExist(err) {
			problems = append(problems, fmt.Sprintf("dangling index entry: %s has no body file", e.ID))
		}
	}
	if len(idx.Entries) > s.max {
		problems = append(problems, fmt.Sprintf("index holds %d entries, ceiling is %d", len(idx.Entries), s.max))
	}

	// Orphaned bodies: files never admitted to (or dropped from) the index.
	entries, err := os.ReadDir(filepath.Join(s.root, dirInvestigations))
	if err != nil {
		return problems, fmt.Errorf("health check: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == indexFile || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if !indexed[id] {
			problems = append(problems, fmt.Sprintf("orphaned body file: %s not in index", id))
		}
	}

	for _, collection := range []string{dirEvidence, dirAnalysis, dirReports} {
		refIdx, err := s.loadRefIndex(collection)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		for invID, ids := range refIdx {
			if !indexed[invID] {
				problems = append(problems, fmt.Sprintf("%s index references unknown investigation %s", collection, invID))
			}
			for _, id := range ids {
				if _, err := os.Stat(s.entityPath(collection, invID, id)); os.IsNotExist(err) {
					problems = append(problems, fmt.Sprintf("%s index references missing file %s/%s", collection, invID, id))
				}
			}
		}
	}
	return problems, nil
}
