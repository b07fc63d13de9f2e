package runtime

import (
	"context"
	"testing"

	cfgpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/config"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/event"
	pebblestore "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/storage/pebble"
)

func TestOpenCloseHealth(t *testing.T) {
	dir := t.TempDir()
	rt, err := Open(Options{DataDir: dir, Fsync: pebblestore.FsyncModeNever, Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	defer rt.Close()
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestEnsureTenantAndPublish(t *testing.T) {
	dir := t.TempDir()
	rt, err := Open(Options{DataDir: dir, Fsync: pebblestore.FsyncModeNever, Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()
	if _, err := rt.EnsureTenant("default"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	seq, err := rt.Delivery().Publish(context.Background(), "tasks", event.Event{Type: "task.created", TenantID: "default"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if seq != 1 {
		t.Fatalf("first publish seq %d", seq)
	}
}
