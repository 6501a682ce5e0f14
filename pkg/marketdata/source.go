package marketdata

import (
	"fmt"

	"github.com/uhyunpark/tickreplay/pkg/sim"
)

// Source partitions a flat record table into fixed-size ticks and replays
// them in order. Each tick's quote and trade pair come from the last record
// of its group.
type Source struct {
	updates []sim.MarketUpdate
	next    int
}

var _ sim.Source = (*Source)(nil)

// NewSource groups records into ticks of recordsPerTick consecutive rows and
// keeps the first `ticks` groups. The table must hold enough rows and be
// non-decreasing in time, and consecutive ticks must have distinct
// timestamps so the update stream is strictly increasing.
func NewSource(records []Record, recordsPerTick, ticks int) (*Source, error) {
	if recordsPerTick <= 0 {
		return nil, &sim.ConfigError{Field: "records_per_tick", Reason: fmt.Sprintf("must be > 0, got %d", recordsPerTick)}
	}
	if ticks <= 0 {
		return nil, &sim.ConfigError{Field: "ticks", Reason: fmt.Sprintf("must be > 0, got %d", ticks)}
	}
	need := recordsPerTick * ticks
	if need > len(records) {
		return nil, &sim.ConfigError{
			Field:  "ticks",
			Reason: fmt.Sprintf("%d ticks of %d records need %d rows, have %d", ticks, recordsPerTick, need, len(records)),
		}
	}

	for i := 1; i < need; i++ {
		if records[i].Timestamp < records[i-1].Timestamp {
			return nil, fmt.Errorf("%w: record %d (%d) before record %d (%d)",
				ErrOutOfOrder, i, records[i].Timestamp, i-1, records[i-1].Timestamp)
		}
	}

	updates := make([]sim.MarketUpdate, ticks)
	for t := 0; t < ticks; t++ {
		rep := records[(t+1)*recordsPerTick-1]
		updates[t] = toUpdate(t, rep)
		if t > 0 && updates[t].Timestamp <= updates[t-1].Timestamp {
			return nil, fmt.Errorf("%w: tick %d and tick %d share timestamp %d",
				ErrOutOfOrder, t-1, t, rep.Timestamp)
		}
	}
	return &Source{updates: updates}, nil
}

func toUpdate(tick int, r Record) sim.MarketUpdate {
	return sim.MarketUpdate{
		Tick:      tick,
		Timestamp: r.Timestamp,
		Quote: sim.QuoteSnapshot{
			Timestamp: r.Timestamp,
			Ask:       sim.Level{Price: r.AskPrice, Size: r.AskSize},
			Bid:       sim.Level{Price: r.BidPrice, Size: r.BidSize},
		},
		Trades: sim.TradePair{
			Timestamp: r.Timestamp,
			Ask:       sim.Trade{Price: r.AskPrice, Size: r.AskSize},
			Bid:       sim.Trade{Price: r.BidPrice, Size: r.BidSize},
		},
	}
}

// Next returns the next update or sim.ErrEndOfData.
func (s *Source) Next() (sim.MarketUpdate, error) {
	if s.next >= len(s.updates) {
		return sim.MarketUpdate{}, sim.ErrEndOfData
	}
	u := s.updates[s.next]
	s.next++
	return u, nil
}

// Len is the total number of ticks.
func (s *Source) Len() int { return len(s.updates) }

// Remaining is the number of ticks not yet returned by Next.
func (s *Source) Remaining() int { return len(s.updates) - s.next }

// SliceSource replays prebuilt updates as-is.
type SliceSource struct {
	updates []sim.MarketUpdate
	next    int
}

var _ sim.Source = (*SliceSource)(nil)

func NewSliceSource(updates []sim.MarketUpdate) *SliceSource {
	cp := append([]sim.MarketUpdate(nil), updates...)
	return &SliceSource{updates: cp}
}

func (s *SliceSource) Next() (sim.MarketUpdate, error) {
	if s.next >= len(s.updates) {
		return sim.MarketUpdate{}, sim.ErrEndOfData
	}
	u := s.updates[s.next]
	s.next++
	return u, nil
}
