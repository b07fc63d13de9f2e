package id

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"sync"
	"time"
)

// ID is a 128-bit, lexicographically sortable event identifier encoded as
// 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence]. IDs minted
// by the same Generator sort in publish order.
type ID [16]byte

// Bytes returns the raw 16-byte representation.
func (i ID) Bytes() []byte { b := make([]byte, 16); copy(b, i[:]); return b }

// String returns the 32-char lowercase hex form.
func (i ID) String() string { return hex.EncodeToString(i[:]) }

// Time returns the millisecond timestamp half of the identifier.
func (i ID) Time() time.Time {
	ms := int64(binary.BigEndian.Uint64(i[0:8]))
	return time.UnixMilli(ms)
}

// Compare returns -1, 0, 1 based on lexical comparison.
func (i ID) Compare(other ID) int { return bytes.Compare(i[:], other[:]) }

// ErrBadID reports a string that is not a 32-char hex identifier.
var ErrBadID = errors.New("id: malformed identifier")

// Parse decodes the hex form produced by String.
func Parse(s string) (ID, error) {
	var out ID
	if len(s) != 32 {
		return out, ErrBadID
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, ErrBadID
	}
	copy(out[:], b)
	return out, nil
}

// Generator mints monotonically increasing IDs per process.
type Generator struct {
	mu     sync.Mutex
	lastMs int64
	seq    uint64
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// NowMs returns current time in milliseconds since Unix epoch.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Next returns a new ID. A backwards clock reuses lastMs and bumps the
// sequence; sequence exhaustion within one millisecond spins until the
// clock advances.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}

	switch {
	case ms != g.lastMs:
		g.seq = 0
	case g.seq == math.MaxUint64:
		for ms <= g.lastMs {
			time.Sleep(time.Millisecond / 8)
			ms = NowMs()
		}
		g.seq = 0
	default:
		g.seq++
	}

	g.lastMs = ms

	var out ID
	binary.BigEndian.PutUint64(out[0:8], uint64(ms))
	binary.BigEndian.PutUint64(out[8:16], g.seq)
	return out
}
