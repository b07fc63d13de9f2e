package event

import (
	"errors"
	"time"
)

// Known producer channels, one per business domain. The channel type stays an
// open string so new producers can publish without touching this package.
const (
	ChannelFinance    = "finance"
	ChannelStaff      = "staff"
	ChannelTasks      = "tasks"
	ChannelProperties = "properties"
	ChannelGuests     = "guests"
)

// KnownChannels lists the channels shipped with the platform.
func KnownChannels() []string {
	return []string{ChannelFinance, ChannelStaff, ChannelTasks, ChannelProperties, ChannelGuests}
}

// Event is a producer-supplied domain event record.
type Event struct {
	ID            string         `json:"id"`
	SchemaVersion int            `json:"schemaVersion"`
	Type          string         `json:"type"`
	TenantID      string         `json:"tenantId"`
	PropertyID    int64          `json:"propertyId,omitempty"`
	ActorID       string         `json:"actorId,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	EntityID      string         `json:"entityId"`
	EntityKind    string         `json:"entityKind"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

var (
	ErrMissingTenant = errors.New("event: tenant id is required")
	ErrMissingType   = errors.New("event: type is required")
)

// Validate checks the fields a producer must supply.
func (e Event) Validate() error {
	if e.TenantID == "" {
		return ErrMissingTenant
	}
	if e.Type == "" {
		return ErrMissingType
	}
	return nil
}

// EntityKey returns the conflation key for the event. The second return is
// false when the event carries no entity identity and must not be conflated.
func (e Event) EntityKey() (string, bool) {
	if e.EntityKind == "" || e.EntityID == "" {
		return "", false
	}
	return e.EntityKind + "/" + e.EntityID, true
}

// Overlay returns a copy of e with newer's fields applied on top,
// last-write-wins. Metadata is merged key-wise; all other populated fields of
// newer replace e's.
func Overlay(older, newer Event) Event {
	out := newer
	if out.ID == "" {
		out.ID = older.ID
	}
	if out.ActorID == "" {
		out.ActorID = older.ActorID
	}
	if out.PropertyID == 0 {
		out.PropertyID = older.PropertyID
	}
	if len(older.Metadata) > 0 {
		merged := make(map[string]any, len(older.Metadata)+len(newer.Metadata))
		for k, v := range older.Metadata {
			merged[k] = v
		}
		for k, v := range newer.Metadata {
			merged[k] = v
		}
		out.Metadata = merged
	}
	return out
}

// InvalidationKeys derives the opaque cache keys a client should refetch
// after seeing the event.
func InvalidationKeys(channel string, e Event) []string {
	keys := []string{"tenant:" + e.TenantID + ":" + channel}
	if e.EntityKind != "" && e.EntityID != "" {
		keys = append(keys, "tenant:"+e.TenantID+":"+channel+":"+e.EntityKind+":"+e.EntityID)
	}
	return keys
}
