package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/tickreplay/pkg/sim"
)

func fill(id sim.FillID, side sim.Side, px string) sim.OwnFill {
	return sim.OwnFill{
		Timestamp: 1000 + int64(id),
		FillID:    id,
		OrderID:   sim.OrderID(id * 2),
		Side:      side,
		Size:      decimal.RequireFromString("0.02"),
		Price:     decimal.RequireFromString(px),
	}
}

// stores runs every case against both RunStore implementations.
func stores(t *testing.T) map[string]RunStore {
	t.Helper()
	ps, err := NewPebbleStore(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	t.Cleanup(func() { ps.Close() })
	return map[string]RunStore{
		"pebble": ps,
		"memory": NewInMemoryStore(),
	}
}

func TestRunStore_RunRoundTrip(t *testing.T) {
	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetRun("nope")
			assert.ErrorIs(t, err, ErrRunNotFound)

			second := RunMeta{ID: "b", Status: StatusCompleted, StartedAt: base.Add(time.Minute),
				Engine: sim.Config{ActivationLatency: 10, MaxLifetime: 100, MaxPosition: 10}}
			first := RunMeta{ID: "a", Status: StatusRunning, StartedAt: base}
			require.NoError(t, s.SaveRun(second))
			require.NoError(t, s.SaveRun(first))

			got, err := s.GetRun("b")
			require.NoError(t, err)
			assert.Equal(t, StatusCompleted, got.Status)
			assert.Equal(t, 100, got.Engine.MaxLifetime)
			assert.True(t, got.StartedAt.Equal(second.StartedAt))

			first.Status = StatusCompleted
			first.FillCount = 3
			require.NoError(t, s.SaveRun(first))

			runs, err := s.ListRuns()
			require.NoError(t, err)
			require.Len(t, runs, 2)
			assert.Equal(t, "a", runs[0].ID)
			assert.Equal(t, 3, runs[0].FillCount)
			assert.Equal(t, "b", runs[1].ID)
		})
	}
}

func TestRunStore_FillsInLedgerOrder(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			// ids crossing a byte boundary would misorder with decimal keys
			for _, id := range []sim.FillID{0, 1, 2, 255, 256, 1000} {
				require.NoError(t, s.SaveFill("run-1", fill(id, sim.Bid, "10.5")))
			}
			require.NoError(t, s.SaveFill("run-10", fill(0, sim.Ask, "9")))

			fills, err := s.LoadFills("run-1")
			require.NoError(t, err)
			require.Len(t, fills, 6)
			for i := 1; i < len(fills); i++ {
				assert.Less(t, fills[i-1].FillID, fills[i].FillID)
			}
			assert.True(t, fills[0].Price.Equal(decimal.RequireFromString("10.5")))
			assert.Equal(t, sim.Bid, fills[0].Side)

			other, err := s.LoadFills("run-10")
			require.NoError(t, err)
			require.Len(t, other, 1)
			assert.Equal(t, sim.Ask, other[0].Side)

			none, err := s.LoadFills("missing")
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestPebbleStore_Reopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	s, err := NewPebbleStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(RunMeta{ID: "r1", Status: StatusCompleted, Fingerprint: "abc"}))
	require.NoError(t, s.SaveFill("r1", fill(7, sim.Ask, "3.25")))
	require.NoError(t, s.Close())

	s, err = NewPebbleStore(dir)
	require.NoError(t, err)
	defer s.Close()

	meta, err := s.GetRun("r1")
	require.NoError(t, err)
	assert.Equal(t, "abc", meta.Fingerprint)
	fills, err := s.LoadFills("r1")
	require.NoError(t, err)
	require.Len(t, fills, 1)
	assert.Equal(t, sim.FillID(7), fills[0].FillID)
}

func TestFileJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fills.jsonl")
	j, err := NewFileJournal(path)
	require.NoError(t, err)
	require.NoError(t, j.Append("r1", fill(0, sim.Bid, "1")))
	require.NoError(t, j.Append("r1", fill(1, sim.Ask, "2")))
	require.NoError(t, j.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []journalLine
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var l journalLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l))
		lines = append(lines, l)
	}
	require.NoError(t, sc.Err())
	require.Len(t, lines, 2)
	assert.Equal(t, "r1", lines[1].RunID)
	assert.Equal(t, sim.Ask, lines[1].Fill.Side)

	assert.NoError(t, NewNopJournal().Append("r1", fill(0, sim.Bid, "1")))
}

func TestRunStore_FillsIsolatedByRunID(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ids := []string{"a", "a:b", "a:", "", "ab", "a\xff", "a\xff\xff"}
			for i, id := range ids {
				require.NoError(t, s.SaveFill(id, fill(sim.FillID(i), sim.Bid, "1")))
			}
			for i, id := range ids {
				fills, err := s.LoadFills(id)
				require.NoError(t, err)
				require.Len(t, fills, 1, "run %q", id)
				assert.Equal(t, sim.FillID(i), fills[0].FillID, "run %q", id)
			}
		})
	}
}

func TestKeyUpperBound(t *testing.T) {
	tests := []struct {
		name   string
		prefix []byte
		want   []byte
	}{
		{"fill prefix", fillPrefix("run-1"), []byte("f:\x05run-2")},
		{"run prefix", runPrefix(), []byte("r;")},
		{"trailing 0xff", []byte("a\xff\xff"), []byte("b")},
		{"all 0xff", []byte{0xff, 0xff}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keyUpperBound(tt.prefix))
		})
	}
}
