package report

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/sha3"

	"github.com/uhyunpark/tickreplay/pkg/sim"
)

// SideStats aggregates the fills of one side.
type SideStats struct {
	Count    int             `json:"count"`
	PriceSum decimal.Decimal `json:"priceSum"`
	Volume   decimal.Decimal `json:"volume"`
}

// Summary is the per-side aggregate of a ledger.
type Summary struct {
	Bid SideStats `json:"bid"`
	Ask SideStats `json:"ask"`
}

// Net is filled bid volume minus filled ask volume.
func (s Summary) Net() decimal.Decimal {
	return s.Bid.Volume.Sub(s.Ask.Volume)
}

func Summarize(fills []sim.OwnFill) Summary {
	var s Summary
	for _, f := range fills {
		st := &s.Bid
		if f.Side == sim.Ask {
			st = &s.Ask
		}
		st.Count++
		st.PriceSum = st.PriceSum.Add(f.Price)
		st.Volume = st.Volume.Add(f.Size)
	}
	return s
}

// WriteLedger prints one "SIDE price" line per fill followed by a totals
// line "askSum askCount bidSum bidCount".
func WriteLedger(w io.Writer, fills []sim.OwnFill) error {
	for _, f := range fills {
		if _, err := fmt.Fprintf(w, "%s %s\n", f.Side, f.Price); err != nil {
			return err
		}
	}
	s := Summarize(fills)
	_, err := fmt.Fprintf(w, "%s %d %s %d\n", s.Ask.PriceSum, s.Ask.Count, s.Bid.PriceSum, s.Bid.Count)
	return err
}

// Fingerprint is the keccak256 digest of the ledger's canonical encoding.
// Two runs with the same inputs produce the same fingerprint.
func Fingerprint(fills []sim.OwnFill) string {
	h := sha3.NewLegacyKeccak256()
	var buf [8]byte
	for _, f := range fills {
		binary.BigEndian.PutUint64(buf[:], uint64(f.Timestamp))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], uint64(f.FillID))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], uint64(f.OrderID))
		h.Write(buf[:])
		h.Write([]byte{byte(f.Side)})
		// decimals are written in canonical string form so 1.0 and 1 agree
		writeField(h, f.Size.String())
		writeField(h, f.Price.String())
	}
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

func writeField(w io.Writer, s string) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	w.Write(n[:])
	io.WriteString(w, s)
}
