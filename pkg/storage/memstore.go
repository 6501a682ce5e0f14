package storage

import (
	"fmt"
	"sync"

	"github.com/uhyunpark/tickreplay/pkg/sim"
)

type InMemoryStore struct {
	mu    sync.Mutex
	runs  map[string]RunMeta
	fills map[string][]sim.OwnFill
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		runs:  make(map[string]RunMeta),
		fills: make(map[string][]sim.OwnFill),
	}
}

var _ RunStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) SaveRun(meta RunMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[meta.ID] = meta
	return nil
}

func (s *InMemoryStore) GetRun(id string) (RunMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.runs[id]
	if !ok {
		return RunMeta{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return meta, nil
}

func (s *InMemoryStore) ListRuns() ([]RunMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := make([]RunMeta, 0, len(s.runs))
	for _, m := range s.runs {
		runs = append(runs, m)
	}
	sortRuns(runs)
	return runs, nil
}

func (s *InMemoryStore) SaveFill(runID string, f sim.OwnFill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fills[runID] = append(s.fills[runID], f)
	return nil
}

func (s *InMemoryStore) LoadFills(runID string) ([]sim.OwnFill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.fills[runID]
	if len(src) == 0 {
		return nil, nil
	}
	out := make([]sim.OwnFill, len(src))
	copy(out, src)
	return out, nil
}
