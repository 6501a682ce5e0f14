package storage

import (
	"encoding/binary"
	"encoding/json"

	"github.com/uhyunpark/tickreplay/pkg/sim"
)

func encodeJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

func decodeJSON(b []byte, v any) error {
	return json.Unmarshal(b, v)
}

func fillIDKey(id sim.FillID) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(id))
	return k[:]
}
