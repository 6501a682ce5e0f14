package marketdata

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/tickreplay/pkg/sim"
)

const sampleCSV = `exchange_ts, price_BID, size_BID, price_ASK, size_ASK
100, 9.5, 1.2, 10.5, 0.8
101, 9.6, 1.0, 10.4, 0.7
102, 9.7, 2.0, 10.3, 0.6
103, 9.8, 3.0, 10.2, 0.5
104, 9.9, 4.0, 10.1, 0.4
`

func records(t *testing.T, n int) []Record {
	t.Helper()
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{
			Timestamp: int64(1000 + i),
			BidPrice:  decimal.NewFromInt(int64(100 - i)),
			BidSize:   decimal.NewFromInt(1),
			AskPrice:  decimal.NewFromInt(int64(101 + i)),
			AskSize:   decimal.NewFromInt(2),
		}
	}
	return out
}

func TestReadCSV(t *testing.T) {
	recs, err := ReadCSV(strings.NewReader(sampleCSV), DefaultColumns())
	require.NoError(t, err)
	require.Len(t, recs, 5)

	assert.Equal(t, int64(100), recs[0].Timestamp)
	assert.True(t, recs[0].BidPrice.Equal(decimal.RequireFromString("9.5")))
	assert.True(t, recs[4].AskSize.Equal(decimal.RequireFromString("0.4")))
}

func TestReadCSV_ColumnOrderFromHeader(t *testing.T) {
	in := "size_ASK,price_ASK,size_BID,price_BID,exchange_ts,extra\n1,2,3,4,5,ignored\n"
	recs, err := ReadCSV(strings.NewReader(in), DefaultColumns())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(5), recs[0].Timestamp)
	assert.True(t, recs[0].BidPrice.Equal(decimal.NewFromInt(4)))
	assert.True(t, recs[0].AskSize.Equal(decimal.NewFromInt(1)))
}

func TestReadCSV_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty input", ""},
		{"missing column", "exchange_ts,price_BID,size_BID,price_ASK\n1,2,3,4\n"},
		{"empty cell", "exchange_ts,price_BID,size_BID,price_ASK,size_ASK\n1,2,,4,5\n"},
		{"bad number", "exchange_ts,price_BID,size_BID,price_ASK,size_ASK\n1,abc,3,4,5\n"},
		{"bad timestamp", "exchange_ts,price_BID,size_BID,price_ASK,size_ASK\n1.5,2,3,4,5\n"},
		{"short row", "exchange_ts,price_BID,size_BID,price_ASK,size_ASK\n1,2,3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in), DefaultColumns())
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "md.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	recs, err := LoadCSV(path, DefaultColumns())
	require.NoError(t, err)
	assert.Len(t, recs, 5)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), DefaultColumns())
	assert.Error(t, err)
}

func TestNewSource_GroupsByTick(t *testing.T) {
	recs := records(t, 10)
	src, err := NewSource(recs, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, src.Len())

	for tick := 0; tick < 3; tick++ {
		u, err := src.Next()
		require.NoError(t, err)
		rep := recs[(tick+1)*3-1]
		assert.Equal(t, tick, u.Tick)
		assert.Equal(t, rep.Timestamp, u.Timestamp)
		assert.Equal(t, rep.Timestamp, u.Trades.Timestamp)
		assert.True(t, u.Quote.Ask.Price.Equal(rep.AskPrice))
		assert.True(t, u.Trades.Bid.Price.Equal(rep.BidPrice))
		assert.True(t, u.Trades.Ask.Size.Equal(rep.AskSize))
	}
	assert.Equal(t, 0, src.Remaining())

	for i := 0; i < 2; i++ {
		_, err := src.Next()
		assert.ErrorIs(t, err, sim.ErrEndOfData)
	}
}

func TestNewSource_ConfigErrors(t *testing.T) {
	recs := records(t, 6)
	tests := []struct {
		name           string
		perTick, ticks int
	}{
		{"zero per tick", 0, 1},
		{"negative ticks", 2, -1},
		{"not enough rows", 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSource(recs, tt.perTick, tt.ticks)
			var cfgErr *sim.ConfigError
			assert.True(t, errors.As(err, &cfgErr), "want *sim.ConfigError, got %v", err)
		})
	}
}

func TestNewSource_RejectsOutOfOrder(t *testing.T) {
	recs := records(t, 4)
	recs[2].Timestamp = recs[0].Timestamp - 1
	_, err := NewSource(recs, 2, 2)
	assert.ErrorIs(t, err, ErrOutOfOrder)

	// equal rows inside a tick are fine, equal tick timestamps are not
	recs = records(t, 4)
	recs[1].Timestamp = recs[0].Timestamp
	_, err = NewSource(recs, 2, 2)
	assert.NoError(t, err)
	recs[3].Timestamp = recs[1].Timestamp
	recs[2].Timestamp = recs[1].Timestamp
	_, err = NewSource(recs, 2, 2)
	assert.ErrorIs(t, err, ErrOutOfOrder)

	// rows past the replayed window are not checked
	recs = records(t, 4)
	recs[3].Timestamp = 0
	_, err = NewSource(recs, 1, 3)
	assert.NoError(t, err)
}

func TestSliceSource(t *testing.T) {
	ups := []sim.MarketUpdate{{Tick: 0, Timestamp: 1}, {Tick: 1, Timestamp: 2}}
	src := NewSliceSource(ups)
	ups[0].Timestamp = 99

	u, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.Timestamp)
	_, err = src.Next()
	require.NoError(t, err)
	_, err = src.Next()
	assert.ErrorIs(t, err, sim.ErrEndOfData)
}
