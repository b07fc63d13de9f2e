package event

import (
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	ev := Event{TenantID: "t1", Type: "task.updated"}
	if err := ev.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := (Event{Type: "x"}).Validate(); err != ErrMissingTenant {
		t.Fatalf("want ErrMissingTenant, got %v", err)
	}
	if err := (Event{TenantID: "t1"}).Validate(); err != ErrMissingType {
		t.Fatalf("want ErrMissingType, got %v", err)
	}
}

func TestEntityKey(t *testing.T) {
	ev := Event{EntityKind: "task", EntityID: "42"}
	key, ok := ev.EntityKey()
	if !ok || key != "task/42" {
		t.Fatalf("key: %q ok=%v", key, ok)
	}
	if _, ok := (Event{EntityKind: "task"}).EntityKey(); ok {
		t.Fatalf("expected no key without entity id")
	}
}

func TestOverlayLastWriteWins(t *testing.T) {
	older := Event{
		ID:         "a1",
		Type:       "task.updated",
		TenantID:   "t1",
		EntityKind: "task",
		EntityID:   "42",
		ActorID:    "alice",
		Metadata:   map[string]any{"status": "open", "title": "fix sink"},
	}
	newer := Event{
		ID:         "a2",
		Type:       "task.updated",
		TenantID:   "t1",
		EntityKind: "task",
		EntityID:   "42",
		Metadata:   map[string]any{"status": "done"},
	}
	merged := Overlay(older, newer)
	if merged.ID != "a2" {
		t.Fatalf("id should be newest: %q", merged.ID)
	}
	if merged.ActorID != "alice" {
		t.Fatalf("empty actor should fall back: %q", merged.ActorID)
	}
	if merged.Metadata["status"] != "done" {
		t.Fatalf("newer field must win: %v", merged.Metadata)
	}
	if merged.Metadata["title"] != "fix sink" {
		t.Fatalf("older-only field must survive: %v", merged.Metadata)
	}
}

func TestInvalidationKeys(t *testing.T) {
	ev := Event{TenantID: "t1", EntityKind: "task", EntityID: "42", Timestamp: time.Now()}
	keys := InvalidationKeys(ChannelTasks, ev)
	if len(keys) != 2 {
		t.Fatalf("keys: %v", keys)
	}
	if keys[0] != "tenant:t1:tasks" || keys[1] != "tenant:t1:tasks:task:42" {
		t.Fatalf("keys: %v", keys)
	}
	// No entity identity: channel-level key only.
	keys = InvalidationKeys(ChannelFinance, Event{TenantID: "t1"})
	if len(keys) != 1 {
		t.Fatalf("keys: %v", keys)
	}
}
