package tenant

import (
	"testing"

	pebblestore "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/storage/pebble"
)

func TestEnsureIdempotent(t *testing.T) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	first, err := Ensure(db, "acme")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if first.Name != "acme" || first.CreatedAtMs == 0 {
		t.Fatalf("unexpected meta: %+v", first)
	}
	second, err := Ensure(db, "acme")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if second.CreatedAtMs != first.CreatedAtMs {
		t.Fatalf("ensure not idempotent: %d vs %d", second.CreatedAtMs, first.CreatedAtMs)
	}
}

func TestSetMaxConnections(t *testing.T) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	m, err := SetMaxConnections(db, "acme", 7)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if m.MaxConnections != 7 {
		t.Fatalf("expected cap 7, got %d", m.MaxConnections)
	}
	got, err := Ensure(db, "acme")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if got.MaxConnections != 7 {
		t.Fatalf("cap not persisted: %+v", got)
	}
	cleared, err := SetMaxConnections(db, "acme", 0)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared.MaxConnections != 0 {
		t.Fatalf("expected cap cleared, got %d", cleared.MaxConnections)
	}
}
