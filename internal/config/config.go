package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// DefaultTenantName is used when a caller does not name a tenant.
	DefaultTenantName string `json:"defaultTenantName" yaml:"defaultTenantName"`
	// ProtocolVersion is the handshake protocol version this build speaks.
	ProtocolVersion int `json:"protocolVersion" yaml:"protocolVersion"`

	Retention RetentionConfig `json:"retention" yaml:"retention"`
	Batch     BatchConfig     `json:"batch" yaml:"batch"`
	Fanout    FanoutConfig    `json:"fanout" yaml:"fanout"`
	Session   SessionConfig   `json:"session" yaml:"session"`
	LongPoll  LongPollConfig  `json:"longPoll" yaml:"longPoll"`
}

// RetentionConfig bounds the recent-event ledger and its cursor arena.
type RetentionConfig struct {
	// AgeMs drops ledger entries older than this window.
	AgeMs int64 `json:"ageMs" yaml:"ageMs"`
	// MaxEntries caps per-cursor entry count, oldest dropped first.
	MaxEntries int `json:"maxEntries" yaml:"maxEntries"`
	// CursorIdleMs evicts a (tenant, channel) cursor with no access for this long.
	CursorIdleMs int64 `json:"cursorIdleMs" yaml:"cursorIdleMs"`
	// SweepIntervalMs is the period of the trim/evict sweep.
	SweepIntervalMs int64 `json:"sweepIntervalMs" yaml:"sweepIntervalMs"`
}

// BatchConfig tunes the batching and conflation engine.
type BatchConfig struct {
	// WindowMs is the starting flush window per cursor.
	WindowMs int64 `json:"windowMs" yaml:"windowMs"`
	// MinWindowMs is the adaptive floor.
	MinWindowMs int64 `json:"minWindowMs" yaml:"minWindowMs"`
	// MaxWindowMs is the adaptive cap.
	MaxWindowMs int64 `json:"maxWindowMs" yaml:"maxWindowMs"`
	// MaxSize flushes a batch immediately once it holds this many events.
	MaxSize int `json:"maxSize" yaml:"maxSize"`
	// ConflationPercent is the deterministic tenant rollout for conflation, 0-100.
	ConflationPercent int `json:"conflationPercent" yaml:"conflationPercent"`
	// CompressThresholdBytes compresses serialized batches larger than this.
	// Zero disables compression.
	CompressThresholdBytes int `json:"compressThresholdBytes" yaml:"compressThresholdBytes"`
}

// FanoutConfig bounds per-connection delivery.
type FanoutConfig struct {
	// MaxOutstanding is the per-connection outstanding-send budget.
	MaxOutstanding int `json:"maxOutstanding" yaml:"maxOutstanding"`
	// QuarantineAfter forces a disconnect after this many consecutive drops.
	QuarantineAfter int `json:"quarantineAfter" yaml:"quarantineAfter"`
	// MaxConnectionsPerTenant rejects registrations beyond this count. Zero is unlimited.
	MaxConnectionsPerTenant int `json:"maxConnectionsPerTenant" yaml:"maxConnectionsPerTenant"`
}

// SessionConfig tunes the per-connection lifecycle.
type SessionConfig struct {
	// PingIntervalMs is the keep-alive period.
	PingIntervalMs int64 `json:"pingIntervalMs" yaml:"pingIntervalMs"`
	// WriteTimeoutMs bounds a single outbound frame write.
	WriteTimeoutMs int64 `json:"writeTimeoutMs" yaml:"writeTimeoutMs"`
}

// LongPollConfig bounds the fallback buffer.
type LongPollConfig struct {
	// MaxBuffered caps the per-tenant event list, oldest dropped first.
	MaxBuffered int `json:"maxBuffered" yaml:"maxBuffered"`
	// MaxWaiters caps simultaneous waiters per tenant.
	MaxWaiters int `json:"maxWaiters" yaml:"maxWaiters"`
	// TimeoutMs is how long a subscribe blocks before returning empty.
	TimeoutMs int64 `json:"timeoutMs" yaml:"timeoutMs"`
	// IdleEvictMs evicts a tenant buffer with no activity and no waiters.
	IdleEvictMs int64 `json:"idleEvictMs" yaml:"idleEvictMs"`
	// SweepIntervalMs is the period of the idle-eviction sweep.
	SweepIntervalMs int64 `json:"sweepIntervalMs" yaml:"sweepIntervalMs"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		DefaultTenantName: "default",
		ProtocolVersion:   1,
		Retention: RetentionConfig{
			AgeMs:           300_000,
			MaxEntries:      1000,
			CursorIdleMs:    600_000,
			SweepIntervalMs: 30_000,
		},
		Batch: BatchConfig{
			WindowMs:               50,
			MinWindowMs:            10,
			MaxWindowMs:            400,
			MaxSize:                100,
			ConflationPercent:      100,
			CompressThresholdBytes: 8 << 10,
		},
		Fanout: FanoutConfig{
			MaxOutstanding:  64,
			QuarantineAfter: 3,
		},
		Session: SessionConfig{
			PingIntervalMs: 30_000,
			WriteTimeoutMs: 10_000,
		},
		LongPoll: LongPollConfig{
			MaxBuffered:     200,
			MaxWaiters:      5000,
			TimeoutMs:       25_000,
			IdleEvictMs:     120_000,
			SweepIntervalMs: 30_000,
		},
	}
}

// Load reads configuration from a JSON or YAML file, selected by extension.
// If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
