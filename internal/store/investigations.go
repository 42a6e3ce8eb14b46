package store

import (
	"context"
	"fmt"
	"os"
)

// Create persists a new investigation. The ID must be unique; a duplicate
// fails with ErrAlreadyExists and leaves the existing record untouched.
// When the index already holds the retention ceiling, the oldest case is
// evicted (full cascade) before the new one is admitted, so the store never
// exceeds MaxInvestigations after a successful Create.
func (s *Store) Create(ctx context.Context, inv *Investigation) error {
	if inv.ID == "" {
		inv.ID = newID("inv")
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = nowUTC()
	}
	if inv.UpdatedAt.Before(inv.CreatedAt) {
		inv.UpdatedAt = inv.CreatedAt
	}
	if inv.Status == "" {
		inv.Status = StatusActive
	}

	lock, err := s.locks.Acquire(ctx, s.investigationIndexPath())
	if err != nil {
		return fmt.Errorf("create %s: %w", inv.ID, err)
	}
	defer lock.Release()

	idx, err := s.loadCaseIndex()
	if err != nil {
		return fmt.Errorf("create %s: %w", inv.ID, err)
	}
	if idx.find(inv.ID) >= 0 {
		return fmt.Errorf("create %s: %w", inv.ID, ErrAlreadyExists)
	}

	if err := s.enforceRetention(ctx, idx); err != nil {
		return fmt.Errorf("create %s: %w", inv.ID, err)
	}

	body, err := Encode(inv)
	if err != nil {
		return fmt.Errorf("create %s: %w", inv.ID, err)
	}
	if err := writeFileAtomic(s.investigationPath(inv.ID), body); err != nil {
		return fmt.Errorf("create %s: %w", inv.ID, err)
	}
	// If the index write below fails, the body above is an orphan: invisible
	// to listing, surfaced by the health check. Not silently repaired.
	idx.Entries = append(idx.Entries, entryFor(inv))
	if err := s.saveCaseIndex(idx); err != nil {
		return fmt.Errorf("create %s: index update: %w", inv.ID, err)
	}
	s.log.Debug("created investigation", "id", inv.ID, "severity", inv.Severity)
	return nil
}

// enforceRetention evicts oldest cases until the index is below the ceiling.
// Caller holds the investigation index lock; the index is mutated in memory
// and saved by the caller together with the admitting entry.
func (s *Store) enforceRetention(ctx context.Context, idx *caseIndex) error {
	for len(idx.Entries) >= s.max {
		victim := idx.oldest()
		if victim == nil {
			return nil
		}
		id := victim.ID
		s.log.Info("retention ceiling reached, evicting oldest case",
			"id", id, "created_at", victim.CreatedAt, "max", s.max)
		if err := s.deleteLocked(ctx, idx, id); err != nil {
			return fmt.Errorf("evict %s: %w", id, err)
		}
	}
	idx.LastCleanup = nowUTC()
	return nil
}

// Get loads one investigation with its evidence and analysis hydrated.
// Absence is not an error: a missing ID returns (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*CaseDetail, error) {
	inv, err := s.loadInvestigation(id)
	if err != nil || inv == nil {
		return nil, err
	}
	detail := &CaseDetail{Investigation: *inv}
	if detail.Evidence, err = s.ListEvidence(ctx, id); err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	if detail.Analysis, err = s.ListAnalysis(ctx, id); err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return detail, nil
}

// loadInvestigation reads and decodes one case body. nil on absence.
func (s *Store) loadInvestigation(id string) (*Investigation, error) {
	data, err := os.ReadFile(s.investigationPath(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	var inv Investigation
	if err := Decode(data, &inv); err != nil {
		return nil, fmt.Errorf("%w: investigation %s: %v", ErrCorrupt, id, err)
	}
	if inv.Metadata != nil {
		inv.Metadata, _ = RestoreTimes(inv.Metadata).(map[string]any)
	}
	return &inv, nil
}

// List returns cases matching the filter, newest-first, paged by
// Offset/Limit, each hydrated via Get. It reads only the index to select
// matches, so filtering never loads non-matching bodies. An index entry whose
// body is missing is reported as ErrCorrupt, not skipped.
func (s *Store) List(ctx context.Context, f ListFilter) ([]*CaseDetail, error) {
	lock, err := s.locks.Acquire(ctx, s.investigationIndexPath())
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	idx, err := s.loadCaseIndex()
	lock.Release()
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	selected := selectEntries(idx.Entries, f)
	out := make([]*CaseDetail, 0, len(selected))
	for _, e := range selected {
		detail, err := s.Get(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		if detail == nil {
			return nil, fmt.Errorf("%w: index references %s but body is missing", ErrCorrupt, e.ID)
		}
		out = append(out, detail)
	}
	return out, nil
}

// CasePatch carries the fields Update may change. Nil pointers and nil slices
// mean "keep the stored value"; Metadata entries are merged key-by-key.
// ID and CreatedAt are immutable and have no patch field.
type CasePatch struct {
	Title               *string
	Description         *string
	Status              *string
	Severity            *string
	Category            *string
	Priority            *string
	AssignedTo          *string
	AffectedSystems     []string
	RootCauses          []string
	ContributingFactors []string
	Recommendations     []string
	Metadata            map[string]any
}

func (p CasePatch) apply(inv *Investigation) {
	setIf := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setIf(&inv.Title, p.Title)
	setIf(&inv.Description, p.Description)
	setIf(&inv.Status, p.Status)
	setIf(&inv.Severity, p.Severity)
	setIf(&inv.Category, p.Category)
	setIf(&inv.Priority, p.Priority)
	setIf(&inv.AssignedTo, p.AssignedTo)
	if p.AffectedSystems != nil {
		inv.AffectedSystems = p.AffectedSystems
	}
	if p.RootCauses != nil {
		inv.RootCauses = p.RootCauses
	}
	if p.ContributingFactors != nil {
		inv.ContributingFactors = p.ContributingFactors
	}
	if p.Recommendations != nil {
		inv.Recommendations = p.Recommendations
	}
	if p.Metadata != nil {
		if inv.Metadata == nil {
			inv.Metadata = map[string]any{}
		}
		for k, v := range p.Metadata {
			inv.Metadata[k] = v
		}
	}
}

// Update merges the patch into the stored case, forces UpdatedAt to now,
// rewrites the body, and refreshes the index entry. Fails with ErrNotFound
// when the ID is absent, including when a concurrent Delete (or eviction)
// removes the case mid-update; the delete wins and its cascade stands.
func (s *Store) Update(ctx context.Context, id string, patch CasePatch) (*Investigation, error) {
	bodyLock, err := s.locks.Acquire(ctx, s.investigationPath(id))
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", id, err)
	}
	defer bodyLock.Release()

	inv, err := s.loadInvestigation(id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}

	patch.apply(inv)
	inv.UpdatedAt = nowUTC()

	body, err := Encode(inv)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", id, err)
	}
	if err := writeFileAtomic(s.investigationPath(id), body); err != nil {
		return nil, fmt.Errorf("update %s: %w", id, err)
	}
	if err := s.refreshIndexEntry(ctx, inv); err != nil {
		return nil, fmt.Errorf("update %s: %w", id, err)
	}
	return inv, nil
}

// refreshIndexEntry rewrites the case's index projection under the index lock.
// Caller holds the body lock. A missing entry means the case was deleted (or
// evicted) between the body write and here: the rewrite must not undo the
// cascade, so the just-written body is removed and ErrNotFound is returned.
func (s *Store) refreshIndexEntry(ctx context.Context, inv *Investigation) error {
	lock, err := s.locks.Acquire(ctx, s.investigationIndexPath())
	if err != nil {
		return err
	}
	defer lock.Release()

	idx, err := s.loadCaseIndex()
	if err != nil {
		return err
	}
	i := idx.find(inv.ID)
	if i < 0 {
		if err := os.Remove(s.investigationPath(inv.ID)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove body of deleted case: %w", err)
		}
		return ErrNotFound
	}
	idx.Entries[i] = entryFor(inv)
	return s.saveCaseIndex(idx)
}

// Delete removes a case and everything it owns: the body file, every
// evidence/analysis/report file under the case's subdirectories, and all four
// index references. Idempotent: deleting an absent ID is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	lock, err := s.locks.Acquire(ctx, s.investigationIndexPath())
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	defer lock.Release()

	idx, err := s.loadCaseIndex()
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if err := s.deleteLocked(ctx, idx, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return s.saveCaseIndex(idx)
}

// deleteLocked performs the cascade for one id and drops it from the
// in-memory index. Caller holds the investigation index lock and saves the
// index afterwards. Nothing here fails on absence.
func (s *Store) deleteLocked(ctx context.Context, idx *caseIndex, id string) error {
	if err := os.Remove(s.investigationPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove body: %w", err)
	}
	for _, collection := range []string{dirEvidence, dirAnalysis, dirReports} {
		if err := s.removeAllRefs(ctx, collection, id); err != nil {
			return err
		}
	}
	idx.remove(id)
	s.log.Debug("deleted investigation", "id", id)
	return nil
}

// AddFinding appends a finding to the case body (findings are embedded, not
// separate files) and bumps UpdatedAt. Fails with ErrNotFound on absent case.
func (s *Store) AddFinding(ctx context.Context, f *Finding) error {
	if f.InvestigationID == "" {
		return fmt.Errorf("add finding: empty investigation id")
	}
	if f.ID == "" {
		f.ID = newID("fnd")
	}

	bodyLock, err := s.locks.Acquire(ctx, s.investigationPath(f.InvestigationID))
	if err != nil {
		return fmt.Errorf("add finding to %s: %w", f.InvestigationID, err)
	}
	defer bodyLock.Release()

	inv, err := s.loadInvestigation(f.InvestigationID)
	if err != nil {
		return err
	}
	if inv == nil {
		return fmt.Errorf("add finding to %s: %w", f.InvestigationID, ErrNotFound)
	}

	inv.Findings = append(inv.Findings, *f)
	inv.UpdatedAt = nowUTC()

	body, err := Encode(inv)
	if err != nil {
		return fmt.Errorf("add finding to %s: %w", f.InvestigationID, err)
	}
	if err := writeFileAtomic(s.investigationPath(inv.ID), body); err != nil {
		return fmt.Errorf("add finding to %s: %w", f.InvestigationID, err)
	}
	if err := s.refreshIndexEntry(ctx, inv); err != nil {
		return fmt.Errorf("add finding to %s: %w", f.InvestigationID, err)
	}
	return nil
}
