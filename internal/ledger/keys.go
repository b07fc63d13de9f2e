package ledger

import "encoding/binary"

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - tn/{tenant}/log/{channel}/m
// - tn/{tenant}/log/{channel}/e/{seq_be8}

var (
	tenantPrefix = []byte("tn/")
	logSeg       = []byte("/log/")
	metaSuffix   = []byte("/m")
	entrySeg     = []byte("/e/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// keyMeta builds the cursor metadata key.
func keyMeta(tenant, channel string) []byte {
	k := make([]byte, 0, len(tenant)+len(channel)+16)
	k = append(k, tenantPrefix...)
	k = append(k, tenant...)
	k = append(k, logSeg...)
	k = append(k, channel...)
	k = append(k, metaSuffix...)
	return k
}

// keyEntry builds the entry key with a big-endian sequence for ordering.
func keyEntry(tenant, channel string, seq uint64) []byte {
	k := make([]byte, 0, len(tenant)+len(channel)+24)
	k = append(k, tenantPrefix...)
	k = append(k, tenant...)
	k = append(k, logSeg...)
	k = append(k, channel...)
	k = append(k, entrySeg...)
	k = appendBE8(k, seq)
	return k
}

// entryBounds returns the [low, high) iterator bounds covering every entry of
// one cursor.
func entryBounds(tenant, channel string) ([]byte, []byte) {
	low := keyEntry(tenant, channel, 0)
	hi := keyEntry(tenant, channel, ^uint64(0))
	return low, append(hi, 0x00)
}
