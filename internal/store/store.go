// Package store is the persistence engine for investigation cases and their
// dependent entities (evidence, analysis results, findings, reports). Each
// entity is one JSON file under the storage root; compact per-collection
// indexes keep listing and filtering cheap; a bounded FIFO retention policy
// caps the number of live cases; path-scoped file locks serialize every
// read-modify-write of a shared file.
package store

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxInvestigations is the FIFO retention ceiling when none is configured.
const DefaultMaxInvestigations = 100

// Collection directory names under the storage root.
const (
	dirInvestigations = "investigations"
	dirEvidence       = "evidence"
	dirAnalysis       = "analysis"
	dirReports        = "reports"
)

const indexFile = "index.json"

// Options configures a Store. Root and MaxInvestigations are the only inputs
// the engine takes from configuration; everything else is a library call.
type Options struct {
	Root              string
	MaxInvestigations int
	LockTimeout       time.Duration
	LockStaleAfter    time.Duration
}

// Store is the persistence facade. All methods are safe for concurrent use
// from multiple goroutines; cross-process safety relies on the path locks.
type Store struct {
	root  string
	max   int
	locks *LockManager
	log   *slog.Logger
}

// Open prepares the on-disk layout under opts.Root, reclaims stale lock
// markers left by crashed processes, and returns the store.
func Open(opts Options, log *slog.Logger) (*Store, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("open store: empty root")
	}
	if opts.MaxInvestigations <= 0 {
		opts.MaxInvestigations = DefaultMaxInvestigations
	}
	if log == nil {
		log = slog.Default()
	}
	for _, dir := range []string{dirInvestigations, dirEvidence, dirAnalysis, dirReports} {
		if err := ensureDir(filepath.Join(opts.Root, dir)); err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}
	s := &Store{
		root:  opts.Root,
		max:   opts.MaxInvestigations,
		locks: NewLockManager(opts.LockTimeout, opts.LockStaleAfter, log),
		log:   log,
	}
	if n, err := s.locks.CleanupStale(opts.Root); err != nil {
		log.Warn("stale lock cleanup incomplete", "error", err)
	} else if n > 0 {
		log.Info("reclaimed stale locks", "count", n)
	}
	return s, nil
}

// Root returns the storage root directory.
func (s *Store) Root() string { return s.root }

// MaxInvestigations returns the FIFO retention ceiling.
func (s *Store) MaxInvestigations() int { return s.max }

func (s *Store) investigationIndexPath() string {
	return filepath.Join(s.root, dirInvestigations, indexFile)
}

func (s *Store) investigationPath(id string) string {
	return filepath.Join(s.root, dirInvestigations, id+".json")
}

func (s *Store) refIndexPath(collection string) string {
	return filepath.Join(s.root, collection, indexFile)
}

func (s *Store) entityDir(collection, invID string) string {
	return filepath.Join(s.root, collection, invID)
}

func (s *Store) entityPath(collection, invID, id string) string {
	return filepath.Join(s.root, collection, invID, id+".json")
}

// newID returns a fresh prefixed entity ID, e.g. "inv-5f0c...".
func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

func nowUTC() time.Time { return time.Now().UTC() }
