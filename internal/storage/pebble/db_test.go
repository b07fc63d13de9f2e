package pebblestore

import (
	"context"
	"testing"
	"time"
)

func TestOpenRequiresDataDir(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Fatalf("expected error for empty data dir")
	}
}

func TestSetGetDelete(t *testing.T) {
	db, err := Open(Options{DataDir: t.TempDir(), Fsync: FsyncModeNever})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("want v got %q", got)
	}
	if err := db.Delete([]byte("k")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get([]byte("k")); !ErrNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingMetrics struct {
	reads   int
	commits int
}

func (m *countingMetrics) ObserveRead(time.Duration, int)        { m.reads++ }
func (m *countingMetrics) ObserveBatchCommit(time.Duration, int) { m.commits++ }

func TestMetricsHookObserved(t *testing.T) {
	hook := &countingMetrics{}
	db, err := Open(Options{DataDir: t.TempDir(), Fsync: FsyncModeNever, Metrics: hook})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	b := db.NewBatch()
	if err := b.Set([]byte("a"), []byte("1"), nil); err != nil {
		t.Fatalf("batch set: %v", err)
	}
	if err := db.CommitBatch(context.Background(), b); err != nil {
		t.Fatalf("commit: %v", err)
	}
	b.Close()
	if _, err := db.Get([]byte("a")); err != nil {
		t.Fatalf("get: %v", err)
	}
	if hook.commits == 0 || hook.reads == 0 {
		t.Fatalf("hook not observed: %+v", hook)
	}
}
