// Package banstore keeps the set of permanently banned user ids and mirrors
// it to durable storage.
package banstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Persistence loads and saves the full ban set. Save always receives the
// complete, sorted set; backends overwrite rather than append.
type Persistence interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, ids []string) error
}

// ErrNotLoaded is returned by Ban when the persisted set could not be read.
// The ban holds in memory but nothing is written, so the stored set is never
// replaced by a partial one.
var ErrNotLoaded = errors.New("ban list not loaded")

type Store struct {
	mu  sync.RWMutex
	ids map[string]struct{}

	// saveMu orders snapshots with their saves so an older snapshot never
	// lands after a newer one.
	saveMu  sync.Mutex
	loaded  bool
	persist Persistence
	logger  *zap.Logger
}

// New loads the persisted set. A load failure is logged and the store
// starts empty; Ban retries the load before its first save.
func New(ctx context.Context, persist Persistence, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		ids:     make(map[string]struct{}),
		persist: persist,
		logger:  logger,
	}
	if persist == nil {
		s.loaded = true
		return s
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		logger.Error("failed to load ban list, starting empty", zap.Error(err))
		return s
	}
	logger.Info("ban list loaded", zap.Int("count", s.Len()))
	return s
}

// loadLocked merges the persisted set into memory. saveMu must be held.
func (s *Store) loadLocked(ctx context.Context) error {
	ids, err := s.persist.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	for _, id := range ids {
		if id != "" {
			s.ids[id] = struct{}{}
		}
	}
	s.mu.Unlock()
	s.loaded = true
	return nil
}

func (s *Store) IsBanned(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Ban adds id and rewrites the persisted set. The in-memory ban holds even
// when the save fails; the error is returned for logging only.
func (s *Store) Ban(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("empty user id")
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	_, already := s.ids[id]
	s.ids[id] = struct{}{}
	s.mu.Unlock()

	if s.persist == nil {
		return nil
	}
	if !s.loaded {
		if err := s.loadLocked(ctx); err != nil {
			s.logger.Error("ban list still unreadable, not saving", zap.String("user_id", id), zap.Error(err))
			return fmt.Errorf("persist ban for %s: %w: %v", id, ErrNotLoaded, err)
		}
	} else if already {
		return nil
	}

	s.mu.RLock()
	snapshot := s.snapshotLocked()
	s.mu.RUnlock()
	if err := s.persist.Save(ctx, snapshot); err != nil {
		s.logger.Error("failed to persist ban list", zap.String("user_id", id), zap.Error(err))
		return fmt.Errorf("persist ban for %s: %w", id, err)
	}
	return nil
}

// List returns the banned ids sorted.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

func (s *Store) snapshotLocked() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
