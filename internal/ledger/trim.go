package ledger

import (
	"context"
	"encoding/binary"

	"github.com/cockroachdb/pebble"
)

// TrimOlderThan deletes entries whose record timestamp is < cutoffMs.
// Deletes are committed in batches of up to batchLimit keys. Returns the
// number of deleted entries.
func (l *Log) TrimOlderThan(ctx context.Context, cutoffMs int64, batchLimit int) (int, error) {
	if batchLimit <= 0 {
		batchLimit = 1024
	}

	low, hi := entryBounds(l.tenant, l.channel)
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: hi})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	deleted := 0
	for ok := iter.First(); ok; {
		b := l.db.NewBatch()
		n := 0
		for ok && n < batchLimit {
			ts, _, okDec := decodeRecord(iter.Value())
			if okDec && ts >= cutoffMs {
				// Entries are time-ordered; stop at the first survivor.
				ok = false
				break
			}
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, err
			}
			deleted++
			n++
			ok = iter.Next()
		}
		if n > 0 {
			if err := l.db.CommitBatch(ctx, b); err != nil {
				b.Close()
				return deleted, err
			}
		}
		b.Close()
	}
	return deleted, nil
}

// TrimToMaxCount drops the oldest entries until no more than maxEntries
// remain. Returns the number of deleted entries.
func (l *Log) TrimToMaxCount(ctx context.Context, maxEntries, batchLimit int) (int, error) {
	if maxEntries < 0 {
		return 0, nil
	}
	if batchLimit <= 0 {
		batchLimit = 1024
	}

	total, err := l.count()
	if err != nil {
		return 0, err
	}
	excess := total - maxEntries
	if excess <= 0 {
		return 0, nil
	}

	low, hi := entryBounds(l.tenant, l.channel)
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: hi})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	deleted := 0
	for ok := iter.First(); ok && deleted < excess; {
		b := l.db.NewBatch()
		n := 0
		for ok && n < batchLimit && deleted < excess {
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, err
			}
			deleted++
			n++
			ok = iter.Next()
		}
		if n > 0 {
			if err := l.db.CommitBatch(ctx, b); err != nil {
				b.Close()
				return deleted, err
			}
		}
		b.Close()
	}
	return deleted, nil
}

// oldestSeq returns the lowest sequence still held, 0 when empty. Used by
// tests to assert trim boundaries.
func (l *Log) oldestSeq() (uint64, error) {
	low, hi := entryBounds(l.tenant, l.channel)
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: hi})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	if !iter.First() {
		return 0, nil
	}
	return binary.BigEndian.Uint64(iter.Key()[len(iter.Key())-8:]), nil
}
