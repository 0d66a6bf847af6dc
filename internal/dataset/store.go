package dataset

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"enrolcli/internal/infrastructure"
)

// Store memoizes the unified table for the process lifetime. The first
// Load reads disk; concurrent first loads collapse into one via
// singleflight; later calls return the cached table. The cached table is
// immutable, so readers need no copy.
type Store struct {
	loader  *Loader
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
	group   singleflight.Group

	mu       sync.RWMutex
	table    *Table
	warnings []LoadWarning
	loadedAt time.Time
}

// NewStore creates a memoizing store around the given loader.
func NewStore(loader *Loader, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		loader: loader,
		logger: logger.With(slog.String("component", "dataset.store")),
	}
}

// SetMetrics attaches load instruments. Call before the first Load.
func (s *Store) SetMetrics(m *infrastructure.BusinessMetrics) {
	s.metrics = m
}

// Load returns the cached table, loading it on first use.
func (s *Store) Load(ctx context.Context) (*Table, error) {
	s.mu.RLock()
	if s.table != nil {
		table := s.table
		s.mu.RUnlock()
		return table, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.group.Do("load", func() (interface{}, error) {
		// Re-check: another flight may have populated the cache between
		// the read-lock check and entering the group.
		s.mu.RLock()
		if s.table != nil {
			table := s.table
			s.mu.RUnlock()
			return table, nil
		}
		s.mu.RUnlock()

		start := time.Now()
		table, warnings, err := s.loader.Load(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.table = table
		s.warnings = warnings
		s.loadedAt = time.Now()
		s.mu.Unlock()

		if s.metrics != nil {
			s.metrics.DatasetRowsLoaded.Add(ctx, int64(len(table.Rows)))
			s.metrics.DatasetLoadWarnings.Add(ctx, int64(len(warnings)))
			s.metrics.DatasetLoadDuration.Record(ctx, time.Since(start).Seconds())
		}

		s.logger.InfoContext(ctx, "dataset cached",
			slog.Int("rows", len(table.Rows)),
			slog.Int("warnings", len(warnings)),
			slog.String("duration", time.Since(start).String()))

		return table, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*Table), nil
}

// Warnings returns the per-file warnings of the last successful load.
func (s *Store) Warnings() []LoadWarning {
	s.mu.RLock()
	defer s.mu.RUnlock()
	warnings := make([]LoadWarning, len(s.warnings))
	copy(warnings, s.warnings)
	return warnings
}

// Loaded reports whether the table is cached.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table != nil
}

// LoadedAt returns when the cached table was built, zero if not loaded.
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Reset clears the cache so the next Load re-reads disk.
func (s *Store) Reset() {
	s.mu.Lock()
	s.table = nil
	s.warnings = nil
	s.loadedAt = time.Time{}
	s.mu.Unlock()
	s.logger.Info("dataset cache cleared")
}
