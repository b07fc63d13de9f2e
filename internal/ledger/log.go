package ledger

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	pebblestore "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/storage/pebble"
)

// Log is the recent-event window for one (tenant, channel) cursor. It owns
// the cursor's sequence counter; Append is the single allocation point, so
// sequence numbers are strictly increasing with no duplicates.
type Log struct {
	db      *pebblestore.DB
	tenant  string
	channel string

	mu      sync.Mutex
	lastSeq uint64
}

// openLog loads the cursor's last sequence from metadata (if any).
func openLog(db *pebblestore.DB, tenant, channel string) (*Log, error) {
	l := &Log{db: db, tenant: tenant, channel: channel}
	meta, err := db.Get(keyMeta(tenant, channel))
	if err == nil && len(meta) >= 8 {
		l.lastSeq = binary.BigEndian.Uint64(meta[:8])
	}
	return l, nil
}

// Tenant returns the owning tenant id.
func (l *Log) Tenant() string { return l.tenant }

// Channel returns the channel name.
func (l *Log) Channel() string { return l.channel }

// LastSeq returns the most recently assigned sequence number (0 if none).
func (l *Log) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq
}

// Append records one event payload, assigning and returning the next
// sequence number. The entry and the updated cursor metadata commit as one
// atomic batch.
func (l *Log) Append(ctx context.Context, payload []byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	l.lastSeq++
	seq := l.lastSeq
	val := encodeRecord(time.Now().UnixMilli(), payload)
	if err := b.Set(keyEntry(l.tenant, l.channel, seq), val, nil); err != nil {
		l.lastSeq--
		return 0, err
	}

	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], l.lastSeq)
	if err := b.Set(keyMeta(l.tenant, l.channel), meta[:], nil); err != nil {
		l.lastSeq--
		return 0, err
	}

	if err := l.db.CommitBatch(ctx, b); err != nil {
		l.lastSeq--
		return 0, err
	}
	return seq, nil
}
