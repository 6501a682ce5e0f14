package backtest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/tickreplay/pkg/marketdata"
	"github.com/uhyunpark/tickreplay/pkg/policy"
	"github.com/uhyunpark/tickreplay/pkg/sim"
	"github.com/uhyunpark/tickreplay/pkg/storage"
)

func sliceSpec(label string, cfg sim.Config, n int, newPolicy func() policy.Policy) Spec {
	return Spec{
		Label:  label,
		Config: cfg,
		Source: func() (sim.Source, error) { return marketdata.NewSliceSource(flat(n)), nil },
		Policy: newPolicy,
	}
}

func TestRunMany_IsolatedRuns(t *testing.T) {
	cfg := sim.Config{ActivationLatency: 1, MaxLifetime: 10, MaxPosition: 2}
	specs := []Spec{
		sliceSpec("a", cfg, 30, alwaysBid),
		sliceSpec("b", cfg, 30, alwaysBid),
		sliceSpec("short", cfg, 3, alwaysBid),
	}
	store := storage.NewInMemoryStore()
	pub := newRecorder()

	results, err := RunMany(context.Background(), specs, Runner{Store: store, Publisher: pub})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// identical specs on separate engines produce identical ledgers
	assert.Equal(t, results[0].Fingerprint, results[1].Fingerprint)
	assert.Equal(t, int64(2), results[0].Position)
	assert.Equal(t, 30, results[0].Ticks)
	assert.Equal(t, 3, results[2].Ticks)
	assert.NotEqual(t, results[0].RunID, results[1].RunID)

	runs, err := store.ListRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 3)
	for _, res := range results {
		assert.Len(t, pub.fills[res.RunID], len(res.Fills))
		meta, err := store.GetRun(res.RunID)
		require.NoError(t, err)
		assert.Equal(t, storage.StatusCompleted, meta.Status)
	}
}

func TestRunMany_FirstErrorIsReported(t *testing.T) {
	bad := Spec{
		Label:  "bad source",
		Config: sim.Config{MaxLifetime: 5},
		Source: func() (sim.Source, error) { return nil, errors.New("no file") },
		Policy: func() policy.Policy { return policy.Nop{} },
	}
	invalid := sliceSpec("bad config", sim.Config{MaxLifetime: 0}, 3, func() policy.Policy { return policy.Nop{} })

	_, err := RunMany(context.Background(), []Spec{bad}, Runner{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no file")

	_, err = RunMany(context.Background(), []Spec{invalid}, Runner{})
	var cfgErr *sim.ConfigError
	assert.True(t, errors.As(err, &cfgErr), "want *sim.ConfigError, got %v", err)
}

func TestRunMany_Empty(t *testing.T) {
	results, err := RunMany(context.Background(), nil, Runner{})
	require.NoError(t, err)
	assert.Empty(t, results)
}
