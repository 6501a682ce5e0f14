package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrOutOfOrder      = errors.New("record timestamps out of order")
)

// Record is one raw row of the historical quote table.
type Record struct {
	Timestamp int64
	BidPrice  decimal.Decimal
	BidSize   decimal.Decimal
	AskPrice  decimal.Decimal
	AskSize   decimal.Decimal
}

// Columns names the header cells holding each Record field.
type Columns struct {
	Timestamp string
	BidPrice  string
	BidSize   string
	AskPrice  string
	AskSize   string
}

// DefaultColumns matches the exported exchange dumps the engine is usually
// replayed against.
func DefaultColumns() Columns {
	return Columns{
		Timestamp: "exchange_ts",
		BidPrice:  "price_BID",
		BidSize:   "size_BID",
		AskPrice:  "price_ASK",
		AskSize:   "size_ASK",
	}
}

// LoadCSV reads every record from the file at path.
func LoadCSV(path string, cols Columns) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open market data: %w", err)
	}
	defer f.Close()

	recs, err := ReadCSV(f, cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// ReadCSV parses a header row followed by data rows. Any missing column,
// empty cell or unparsable number fails the whole load.
func ReadCSV(r io.Reader, cols Columns) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrMalformedRecord)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := columnIndex(header, cols)
	if err != nil {
		return nil, err
	}

	var out []Record
	for row := 2; ; row++ {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedRecord, row, err)
		}
		rec, err := parseRecord(cells, idx)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedRecord, row, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

type columnIdx struct {
	ts, bidPx, bidSz, askPx, askSz int
}

func columnIndex(header []string, cols Columns) (columnIdx, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}
	lookup := func(name string) (int, error) {
		i, ok := pos[name]
		if !ok {
			return 0, fmt.Errorf("%w: missing column %q", ErrMalformedRecord, name)
		}
		return i, nil
	}

	var idx columnIdx
	var err error
	if idx.ts, err = lookup(cols.Timestamp); err != nil {
		return idx, err
	}
	if idx.bidPx, err = lookup(cols.BidPrice); err != nil {
		return idx, err
	}
	if idx.bidSz, err = lookup(cols.BidSize); err != nil {
		return idx, err
	}
	if idx.askPx, err = lookup(cols.AskPrice); err != nil {
		return idx, err
	}
	if idx.askSz, err = lookup(cols.AskSize); err != nil {
		return idx, err
	}
	return idx, nil
}

func parseRecord(cells []string, idx columnIdx) (Record, error) {
	cell := func(i int) (string, error) {
		if i >= len(cells) {
			return "", fmt.Errorf("column %d missing", i)
		}
		v := strings.TrimSpace(cells[i])
		if v == "" {
			return "", fmt.Errorf("column %d empty", i)
		}
		return v, nil
	}
	num := func(i int) (decimal.Decimal, error) {
		v, err := cell(i)
		if err != nil {
			return decimal.Decimal{}, err
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("column %d: %w", i, err)
		}
		return d, nil
	}

	var rec Record
	ts, err := cell(idx.ts)
	if err != nil {
		return rec, err
	}
	if rec.Timestamp, err = strconv.ParseInt(ts, 10, 64); err != nil {
		return rec, fmt.Errorf("timestamp: %w", err)
	}
	if rec.BidPrice, err = num(idx.bidPx); err != nil {
		return rec, err
	}
	if rec.BidSize, err = num(idx.bidSz); err != nil {
		return rec, err
	}
	if rec.AskPrice, err = num(idx.askPx); err != nil {
		return rec, err
	}
	if rec.AskSize, err = num(idx.askSz); err != nil {
		return rec, err
	}
	return rec, nil
}
