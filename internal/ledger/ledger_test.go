package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	cfgpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/config"
	pebblestore "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/storage/pebble"
)

func newTestDB(t *testing.T) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestAppendAssignsSequentialSeqs(t *testing.T) {
	db := newTestDB(t)
	l, err := openLog(db, "t1", "tasks")
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	for want := uint64(1); want <= 5; want++ {
		seq, err := l.Append(context.Background(), []byte(fmt.Sprintf("e%d", want)))
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if seq != want {
			t.Fatalf("want seq %d got %d", want, seq)
		}
	}
	if l.LastSeq() != 5 {
		t.Fatalf("last seq: %d", l.LastSeq())
	}
}

func TestAppendConcurrentNoDuplicates(t *testing.T) {
	db := newTestDB(t)
	l, err := openLog(db, "t1", "finance")
	if err != nil {
		t.Fatalf("open log: %v", err)
	}

	const writers = 8
	const perWriter = 25
	var mu sync.Mutex
	seen := map[uint64]bool{}
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				seq, err := l.Append(context.Background(), []byte("x"))
				if err != nil {
					t.Errorf("append: %v", err)
					return
				}
				mu.Lock()
				if seen[seq] {
					t.Errorf("duplicate seq %d", seq)
				}
				seen[seq] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != writers*perWriter {
		t.Fatalf("want %d unique seqs got %d", writers*perWriter, len(seen))
	}
	if l.LastSeq() != writers*perWriter {
		t.Fatalf("last seq %d", l.LastSeq())
	}
}

func TestSinceReturnsOrderedTail(t *testing.T) {
	db := newTestDB(t)
	l, err := openLog(db, "t1", "tasks")
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := l.Append(context.Background(), []byte(fmt.Sprintf("e%d", i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	items, err := l.Since(7, 0)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("want 3 items got %d", len(items))
	}
	for i, it := range items {
		if it.Seq != uint64(8+i) {
			t.Fatalf("item %d seq %d", i, it.Seq)
		}
	}
	if string(items[2].Payload) != "e9" {
		t.Fatalf("payload: %q", items[2].Payload)
	}

	// Stale cursor past the end: empty, no error.
	items, err = l.Since(99, 0)
	if err != nil {
		t.Fatalf("since stale: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("want empty, got %d", len(items))
	}
}

func TestTrimToMaxCountDropsOldestFirst(t *testing.T) {
	db := newTestDB(t)
	l, err := openLog(db, "t1", "guests")
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	for i := 0; i < 20; i++ {
		if _, err := l.Append(context.Background(), []byte("x")); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	deleted, err := l.TrimToMaxCount(context.Background(), 5, 0)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if deleted != 15 {
		t.Fatalf("deleted %d", deleted)
	}
	oldest, err := l.oldestSeq()
	if err != nil {
		t.Fatalf("oldest: %v", err)
	}
	if oldest != 16 {
		t.Fatalf("oldest seq %d", oldest)
	}
	// Sequence numbering survives the trim.
	seq, err := l.Append(context.Background(), []byte("y"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if seq != 21 {
		t.Fatalf("seq after trim: %d", seq)
	}
}

func TestTrimOlderThanDropsAgedEntries(t *testing.T) {
	db := newTestDB(t)
	l, err := openLog(db, "t1", "staff")
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := l.Append(context.Background(), []byte("old")); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	// Everything written so far is older than a future cutoff.
	cutoff := time.Now().Add(time.Second).UnixMilli()
	deleted, err := l.TrimOlderThan(context.Background(), cutoff, 0)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("deleted %d", deleted)
	}
	items, err := l.Since(0, 0)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty window, got %d", len(items))
	}
}

func TestSeqContinuesAcrossReopen(t *testing.T) {
	db := newTestDB(t)
	l, err := openLog(db, "t1", "tasks")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := l.Append(context.Background(), []byte("x")); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	reopened, err := openLog(db, "t1", "tasks")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	seq, err := reopened.Append(context.Background(), []byte("y"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if seq != 5 {
		t.Fatalf("want 5 got %d", seq)
	}
}

func TestRegistryEvictsIdleCursors(t *testing.T) {
	db := newTestDB(t)
	cfg := cfgpkg.RetentionConfig{AgeMs: 300_000, MaxEntries: 1000, CursorIdleMs: 1, SweepIntervalMs: 30_000}
	r := NewRegistry(db, cfg, nil)

	if _, err := r.Open("t1", "tasks"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if r.CursorCount() != 1 {
		t.Fatalf("cursor count: %d", r.CursorCount())
	}
	time.Sleep(5 * time.Millisecond)
	r.Sweep(context.Background())
	if r.CursorCount() != 0 {
		t.Fatalf("cursor not evicted: %d", r.CursorCount())
	}

	// Reopening after eviction keeps the sequence.
	l, err := r.Open("t1", "tasks")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := l.Append(context.Background(), []byte("x")); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestRegistrySweepAppliesRetention(t *testing.T) {
	db := newTestDB(t)
	cfg := cfgpkg.RetentionConfig{AgeMs: 300_000, MaxEntries: 2, CursorIdleMs: 600_000, SweepIntervalMs: 30_000}
	r := NewRegistry(db, cfg, nil)

	l, err := r.Open("t1", "finance")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 6; i++ {
		if _, err := l.Append(context.Background(), []byte("x")); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	r.Sweep(context.Background())
	items, err := l.Since(0, 0)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("want 2 entries after sweep, got %d", len(items))
	}
	if items[0].Seq != 5 || items[1].Seq != 6 {
		t.Fatalf("wrong survivors: %d %d", items[0].Seq, items[1].Seq)
	}
}
