package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// AddEvidence writes one evidence file under evidence/<invID>/<id>.json and
// registers the ID in the evidence index. The owning investigation is not
// re-validated here: callers attach evidence only to cases they just created
// or looked up, and the cascade delete keeps the tree consistent.
func (s *Store) AddEvidence(ctx context.Context, ev *Evidence) error {
	if ev.InvestigationID == "" {
		return fmt.Errorf("add evidence: empty investigation id")
	}
	if ev.ID == "" {
		ev.ID = newID("ev")
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = nowUTC()
	}
	if ev.Metadata.Timestamp.IsZero() {
		ev.Metadata.Timestamp = ev.CreatedAt
	}

	if err := s.writeEntity(dirEvidence, ev.InvestigationID, ev.ID, ev); err != nil {
		return fmt.Errorf("add evidence %s: %w", ev.ID, err)
	}
	if err := s.addRef(ctx, dirEvidence, ev.InvestigationID, ev.ID); err != nil {
		return fmt.Errorf("add evidence %s: index update: %w", ev.ID, err)
	}
	s.log.Debug("added evidence", "id", ev.ID, "investigation", ev.InvestigationID, "type", ev.Type)
	return nil
}

// ListEvidence returns every evidence item for one investigation, oldest
// first. A missing subdirectory means no evidence, not an error.
func (s *Store) ListEvidence(ctx context.Context, invID string) ([]Evidence, error) {
	files, err := s.entityFiles(dirEvidence, invID)
	if err != nil {
		return nil, fmt.Errorf("list evidence for %s: %w", invID, err)
	}
	items := make([]Evidence, 0, len(files))
	for _, path := range files {
		var ev Evidence
		if err := s.readEntity(path, &ev); err != nil {
			return nil, err
		}
		if m, ok := ev.Content.(map[string]any); ok {
			ev.Content = RestoreTimes(m)
		}
		items = append(items, ev)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// EvidenceQuery narrows SearchEvidence results. Empty fields match everything.
type EvidenceQuery struct {
	Types    []string
	After    time.Time
	Before   time.Time
	Contains string
}

// SearchEvidence linearly scans one investigation's evidence, filtering by
// type set, creation window, and case-insensitive substring match against the
// source and the JSON-stringified content and metadata. A plain scan is
// enough here: retention bounds both case and evidence counts.
func (s *Store) SearchEvidence(ctx context.Context, invID string, q EvidenceQuery) ([]Evidence, error) {
	items, err := s.ListEvidence(ctx, invID)
	if err != nil {
		return nil, err
	}
	var typeSet map[string]bool
	if len(q.Types) > 0 {
		typeSet = make(map[string]bool, len(q.Types))
		for _, t := range q.Types {
			typeSet[t] = true
		}
	}
	needle := strings.ToLower(q.Contains)

	out := make([]Evidence, 0, len(items))
	for _, ev := range items {
		if typeSet != nil && !typeSet[ev.Type] {
			continue
		}
		if !q.After.IsZero() && ev.CreatedAt.Before(q.After) {
			continue
		}
		if !q.Before.IsZero() && ev.CreatedAt.After(q.Before) {
			continue
		}
		if needle != "" && !evidenceMatches(&ev, needle) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func evidenceMatches(ev *Evidence, needle string) bool {
	if strings.Contains(strings.ToLower(ev.Source), needle) {
		return true
	}
	if content, err := json.Marshal(ev.Content); err == nil &&
		strings.Contains(strings.ToLower(string(content)), needle) {
		return true
	}
	if meta, err := json.Marshal(ev.Metadata); err == nil &&
		strings.Contains(strings.ToLower(string(meta)), needle) {
		return true
	}
	return false
}

// writeEntity encodes and atomically writes one dependent entity file,
// creating the per-investigation subdirectory on first use.
func (s *Store) writeEntity(collection, invID, id string, v any) error {
	if err := ensureDir(s.entityDir(collection, invID)); err != nil {
		return err
	}
	data, err := Encode(v)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.entityPath(collection, invID, id), data)
}

// readEntity decodes one dependent entity file; decode failure is ErrCorrupt.
func (s *Store) readEntity(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := Decode(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return nil
}

// entityFiles lists the JSON entity files in a per-investigation directory.
func (s *Store) entityFiles(collection, invID string) ([]string, error) {
	dir := s.entityDir(collection, invID)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}
