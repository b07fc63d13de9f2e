// Package tenant stores per-tenant metadata records, created on first use.
package tenant

import (
	"encoding/json"
	"time"

	pebblestore "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/storage/pebble"
)

// Meta holds tenant metadata and optional limits.
type Meta struct {
	Name        string `json:"name"`
	CreatedAtMs int64  `json:"createdAtMs"`
	// MaxConnections limits concurrent realtime connections. Zero is unlimited.
	MaxConnections int `json:"maxConnections"`
}

var tenantMetaPrefix = []byte("tnmeta/")

// metaKey builds the metadata key for a tenant.
func metaKey(name string) []byte {
	k := make([]byte, 0, len(tenantMetaPrefix)+len(name))
	k = append(k, tenantMetaPrefix...)
	k = append(k, name...)
	return k
}

// Ensure creates a tenant meta record if absent, returning the effective meta.
// Idempotent: returns the existing record if already present.
func Ensure(db *pebblestore.DB, name string) (Meta, error) {
	key := metaKey(name)
	if b, err := db.Get(key); err == nil && len(b) > 0 {
		var m Meta
		if err := json.Unmarshal(b, &m); err == nil {
			return m, nil
		}
		// fallthrough to rewrite if corrupted
	}
	m := Meta{Name: name, CreatedAtMs: time.Now().UnixMilli()}
	b, err := json.Marshal(m)
	if err != nil {
		return Meta{}, err
	}
	if err := db.Set(key, b); err != nil {
		return Meta{}, err
	}
	return m, nil
}

// SetMaxConnections updates the per-tenant connection cap, creating the
// tenant record if needed. Zero clears the cap.
func SetMaxConnections(db *pebblestore.DB, name string, max int) (Meta, error) {
	m, err := Ensure(db, name)
	if err != nil {
		return Meta{}, err
	}
	if m.MaxConnections == max {
		return m, nil
	}
	m.MaxConnections = max
	b, err := json.Marshal(m)
	if err != nil {
		return Meta{}, err
	}
	if err := db.Set(metaKey(name), b); err != nil {
		return Meta{}, err
	}
	return m, nil
}
