package store

import (
	"context"
	"fmt"
	"sort"
)

// AddReport writes one rendered report under reports/<invID>/<id>.json and
// registers it in the reports index. Large rendered payloads live in Content;
// binary formats set FilePath and leave Content empty.
func (s *Store) AddReport(ctx context.Context, r *Report) error {
	if r.InvestigationID == "" {
		return fmt.Errorf("add report: empty investigation id")
	}
	if r.ID == "" {
		r.ID = newID("rep")
	}
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = nowUTC()
	}

	if err := s.writeEntity(dirReports, r.InvestigationID, r.ID, r); err != nil {
		return fmt.Errorf("add report %s: %w", r.ID, err)
	}
	if err := s.addRef(ctx, dirReports, r.InvestigationID, r.ID); err != nil {
		return fmt.Errorf("add report %s: index update: %w", r.ID, err)
	}
	s.log.Debug("added report", "id", r.ID, "investigation", r.InvestigationID, "format", r.Format)
	return nil
}

// ListReports returns an investigation's reports, oldest generated first.
func (s *Store) ListReports(ctx context.Context, invID string) ([]Report, error) {
	files, err := s.entityFiles(dirReports, invID)
	if err != nil {
		return nil, fmt.Errorf("list reports for %s: %w", invID, err)
	}
	items := make([]Report, 0, len(files))
	for _, path := range files {
		var r Report
		if err := s.readEntity(path, &r); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].GeneratedAt.Equal(items[j].GeneratedAt) {
			return items[i].GeneratedAt.Before(items[j].GeneratedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}
