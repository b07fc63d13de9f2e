package ledger

import (
	"encoding/binary"
	"hash/crc32"
)

// Record encoding: ts_ms_be8 | payload | crc32c(ts|payload)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func encodeRecord(tsMs int64, payload []byte) []byte {
	out := make([]byte, 0, 8+len(payload)+4)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(tsMs))
	out = append(out, ts[:]...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, out)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	return append(out, crcb[:]...)
}

func decodeRecord(b []byte) (tsMs int64, payload []byte, ok bool) {
	if len(b) < 8+4 {
		return 0, nil, false
	}
	body := b[:len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	if crc32.Update(0, castagnoli, body) != expect {
		return 0, nil, false
	}
	tsMs = int64(binary.BigEndian.Uint64(body[:8]))
	payload = append([]byte(nil), body[8:]...)
	return tsMs, payload, true
}
