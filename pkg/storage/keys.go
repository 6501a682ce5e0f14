package storage

import (
	"encoding/binary"

	"github.com/uhyunpark/tickreplay/pkg/sim"
)

// Key schema:
//
//	r:<runID>                                → RunMeta
//	f:<uvarint len(runID)><runID><8-byte fillID> → OwnFill
//
// The run id is length-prefixed so no run's fill prefix is a prefix of
// another run's keys. Fill ids are big-endian so a prefix scan returns a
// run's fills in ledger order.
const (
	prefixRun  = "r:"
	prefixFill = "f:"
)

func runKey(runID string) []byte {
	return []byte(prefixRun + runID)
}

func runPrefix() []byte {
	return []byte(prefixRun)
}

func fillPrefix(runID string) []byte {
	k := make([]byte, 0, len(prefixFill)+binary.MaxVarintLen64+len(runID))
	k = append(k, prefixFill...)
	k = binary.AppendUvarint(k, uint64(len(runID)))
	return append(k, runID...)
}

func fillKey(runID string, id sim.FillID) []byte {
	return append(fillPrefix(runID), fillIDKey(id)...)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan, or nil
// (unbounded) if the prefix is all 0xff.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	for i := len(bound) - 1; i >= 0; i-- {
		if bound[i] != 0xff {
			bound[i]++
			return bound[:i+1]
		}
	}
	return nil
}
