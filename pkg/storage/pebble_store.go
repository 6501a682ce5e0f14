package storage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/tickreplay/pkg/sim"
)

type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", path, err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

var _ RunStore = (*PebbleStore)(nil)

// SaveRun writes (or overwrites) the run's metadata.
func (s *PebbleStore) SaveRun(meta RunMeta) error {
	data, err := encodeJSON(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if err := s.db.Set(runKey(meta.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func (s *PebbleStore) GetRun(id string) (RunMeta, error) {
	data, closer, err := s.db.Get(runKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return RunMeta{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunMeta{}, fmt.Errorf("failed to get run: %w", err)
	}
	defer closer.Close()

	var meta RunMeta
	if err := decodeJSON(data, &meta); err != nil {
		return RunMeta{}, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return meta, nil
}

// ListRuns returns every stored run, oldest first.
func (s *PebbleStore) ListRuns() ([]RunMeta, error) {
	prefix := runPrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open run iterator: %w", err)
	}
	defer iter.Close()

	var runs []RunMeta
	for iter.First(); iter.Valid(); iter.Next() {
		var meta RunMeta
		if err := decodeJSON(iter.Value(), &meta); err != nil {
			continue // Skip invalid entries
		}
		runs = append(runs, meta)
	}
	sortRuns(runs)
	return runs, nil
}

// SaveFill persists one fill. Fills are written without fsync; SaveRun at
// the end of a run syncs the WAL.
func (s *PebbleStore) SaveFill(runID string, f sim.OwnFill) error {
	data, err := encodeJSON(f)
	if err != nil {
		return fmt.Errorf("failed to marshal fill: %w", err)
	}
	if err := s.db.Set(fillKey(runID, f.FillID), data, pebble.NoSync); err != nil {
		return fmt.Errorf("failed to save fill: %w", err)
	}
	return nil
}

// LoadFills returns the run's fills in ledger order.
func (s *PebbleStore) LoadFills(runID string) ([]sim.OwnFill, error) {
	prefix := fillPrefix(runID)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open fill iterator: %w", err)
	}
	defer iter.Close()

	var fills []sim.OwnFill
	for iter.First(); iter.Valid(); iter.Next() {
		var f sim.OwnFill
		if err := decodeJSON(iter.Value(), &f); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fill %x: %w", iter.Key(), err)
		}
		fills = append(fills, f)
	}
	return fills, nil
}

func sortRuns(runs []RunMeta) {
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
}
