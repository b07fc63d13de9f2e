package ledger

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
)

// Entry is one replayable event held in the ledger.
type Entry struct {
	Seq     uint64
	TsMs    int64
	Payload []byte
}

// Since returns up to limit entries with seq > lastSeq in ascending sequence
// order. limit <= 0 means no limit. The read performs no side effects; it is
// called once per reconnect to replay whatever the client missed.
func (l *Log) Since(lastSeq uint64, limit int) ([]Entry, error) {
	low, hi := entryBounds(l.tenant, l.channel)
	startKey := keyEntry(l.tenant, l.channel, lastSeq+1)

	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var items []Entry
	if !iter.SeekGE(startKey) {
		return items, nil
	}
	for iter.Valid() && (limit <= 0 || len(items) < limit) {
		seq := binary.BigEndian.Uint64(iter.Key()[len(startKey)-8:])
		if ts, payload, ok := decodeRecord(iter.Value()); ok {
			items = append(items, Entry{Seq: seq, TsMs: ts, Payload: payload})
		}
		if !iter.Next() {
			break
		}
	}
	return items, nil
}

// count returns the number of entries currently held by the cursor.
func (l *Log) count() (int, error) {
	low, hi := entryBounds(l.tenant, l.channel)
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: hi})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		n++
	}
	return n, nil
}
