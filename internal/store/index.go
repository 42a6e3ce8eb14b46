package store

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"
)

// caseIndex is the on-disk shape of investigations/index.json.
type caseIndex struct {
	Entries     []IndexEntry `json:"entries"`
	MaxEntries  int          `json:"maxEntries"`
	LastCleanup time.Time    `json:"lastCleanup"`
}

// refIndex maps an investigation ID to the ordered IDs of its dependents.
// It is the shape of evidence/analysis/reports index.json files.
type refIndex map[string][]string

// loadCaseIndex reads the investigation index. A missing file is an empty
// index; a file that fails to decode is ErrCorrupt. Caller holds the index lock.
func (s *Store) loadCaseIndex() (*caseIndex, error) {
	path := s.investigationIndexPath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &caseIndex{MaxEntries: s.max}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var idx caseIndex
	if err := Decode(data, &idx); err != nil {
		return nil, fmt.Errorf("%w: investigation index %s: %v", ErrCorrupt, path, err)
	}
	idx.MaxEntries = s.max
	return &idx, nil
}

// saveCaseIndex rewrites the investigation index atomically. Caller holds the lock.
func (s *Store) saveCaseIndex(idx *caseIndex) error {
	idx.MaxEntries = s.max
	data, err := Encode(idx)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.investigationIndexPath(), data)
}

func (idx *caseIndex) find(id string) int {
	for i := range idx.Entries {
		if idx.Entries[i].ID == id {
			return i
		}
	}
	return -1
}

func (idx *caseIndex) remove(id string) {
	if i := idx.find(id); i >= 0 {
		idx.Entries = append(idx.Entries[:i], idx.Entries[i+1:]...)
	}
}

// oldest returns the eviction candidate: smallest created_at, ties broken by
// lexicographically smallest ID so eviction order is deterministic.
func (idx *caseIndex) oldest() *IndexEntry {
	var victim *IndexEntry
	for i := range idx.Entries {
		e := &idx.Entries[i]
		if victim == nil ||
			e.CreatedAt.Before(victim.CreatedAt) ||
			(e.CreatedAt.Equal(victim.CreatedAt) && e.ID < victim.ID) {
			victim = e
		}
	}
	return victim
}

// ListFilter narrows and pages List results. Zero values mean "no constraint";
// Limit <= 0 means no page bound.
type ListFilter struct {
	Status        string
	Category      string
	Severity      string
	Priority      string
	CreatedAfter  time.Time
	CreatedBefore time.Time
	Offset        int
	Limit         int
}

func (f ListFilter) matches(e IndexEntry) bool {
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if f.Priority != "" && e.Priority != f.Priority {
		return false
	}
	if !f.CreatedAfter.IsZero() && e.CreatedAt.Before(f.CreatedAfter) {
		return false
	}
	if !f.CreatedBefore.IsZero() && e.CreatedAt.After(f.CreatedBefore) {
		return false
	}
	return true
}

// selectEntries filters, sorts newest-first, and pages the index entries.
func selectEntries(entries []IndexEntry, f ListFilter) []IndexEntry {
	out := make([]IndexEntry, 0, len(entries))
	for _, e := range entries {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out
}

// loadRefIndex reads a dependent collection's index. Missing file = empty map.
func (s *Store) loadRefIndex(collection string) (refIndex, error) {
	path := s.refIndexPath(collection)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return refIndex{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var idx refIndex
	if err := Decode(data, &idx); err != nil {
		return nil, fmt.Errorf("%w: %s index %s: %v", ErrCorrupt, collection, path, err)
	}
	return idx, nil
}

func (s *Store) saveRefIndex(collection string, idx refIndex) error {
	data, err := Encode(idx)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.refIndexPath(collection), data)
}

// addRef registers entityID under invID in the collection index, holding that
// index's lock for the whole read-modify-write.
func (s *Store) addRef(ctx context.Context, collection, invID, entityID string) error {
	lock, err := s.locks.Acquire(ctx, s.refIndexPath(collection))
	if err != nil {
		return err
	}
	defer lock.Release()

	idx, err := s.loadRefIndex(collection)
	if err != nil {
		return err
	}
	idx[invID] = append(idx[invID], entityID)
	return s.saveRefIndex(collection, idx)
}

// removeAllRefs drops invID's mapping and its entity subtree for a collection,
// holding that index's lock.
func (s *Store) removeAllRefs(ctx context.Context, collection, invID string) error {
	lock, err := s.locks.Acquire(ctx, s.refIndexPath(collection))
	if err != nil {
		return err
	}
	defer lock.Release()

	idx, err := s.loadRefIndex(collection)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(s.entityDir(collection, invID)); err != nil {
		return fmt.Errorf("remove %s/%s: %w", collection, invID, err)
	}
	if _, ok := idx[invID]; !ok {
		return nil
	}
	delete(idx, invID)
	return s.saveRefIndex(collection, idx)
}
