package store

import (
	"context"
	"fmt"
	"sort"
)

// AddAnalysis writes one analysis result under analysis/<invID>/<id>.json and
// registers it in the analysis index.
func (s *Store) AddAnalysis(ctx context.Context, ar *AnalysisResult) error {
	if ar.InvestigationID == "" {
		return fmt.Errorf("add analysis: empty investigation id")
	}
	if ar.ID == "" {
		ar.ID = newID("an")
	}
	if ar.Confidence < 0 || ar.Confidence > 1 {
		return fmt.Errorf("add analysis %s: confidence %v outside [0,1]", ar.ID, ar.Confidence)
	}
	if ar.CreatedAt.IsZero() {
		ar.CreatedAt = nowUTC()
	}
	if ar.UpdatedAt.Before(ar.CreatedAt) {
		ar.UpdatedAt = ar.CreatedAt
	}

	if err := s.writeEntity(dirAnalysis, ar.InvestigationID, ar.ID, ar); err != nil {
		return fmt.Errorf("add analysis %s: %w", ar.ID, err)
	}
	if err := s.addRef(ctx, dirAnalysis, ar.InvestigationID, ar.ID); err != nil {
		return fmt.Errorf("add analysis %s: index update: %w", ar.ID, err)
	}
	s.log.Debug("added analysis", "id", ar.ID, "investigation", ar.InvestigationID, "type", ar.Type)
	return nil
}

// ListAnalysis returns an investigation's analysis results, oldest first.
func (s *Store) ListAnalysis(ctx context.Context, invID string) ([]AnalysisResult, error) {
	files, err := s.entityFiles(dirAnalysis, invID)
	if err != nil {
		return nil, fmt.Errorf("list analysis for %s: %w", invID, err)
	}
	items := make([]AnalysisResult, 0, len(files))
	for _, path := range files {
		var ar AnalysisResult
		if err := s.readEntity(path, &ar); err != nil {
			return nil, err
		}
		items = append(items, ar)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}
