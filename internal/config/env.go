package config

import (
	"os"
	"strconv"
)

// FromEnv overlays REALTIME_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	envStr("REALTIME_DEFAULT_TENANT_NAME", &cfg.DefaultTenantName)
	envInt("REALTIME_PROTOCOL_VERSION", &cfg.ProtocolVersion)

	envInt64("REALTIME_RETENTION_AGE_MS", &cfg.Retention.AgeMs)
	envInt("REALTIME_RETENTION_MAX_ENTRIES", &cfg.Retention.MaxEntries)
	envInt64("REALTIME_CURSOR_IDLE_MS", &cfg.Retention.CursorIdleMs)
	envInt64("REALTIME_RETENTION_SWEEP_MS", &cfg.Retention.SweepIntervalMs)

	envInt64("REALTIME_BATCH_WINDOW_MS", &cfg.Batch.WindowMs)
	envInt64("REALTIME_BATCH_MIN_WINDOW_MS", &cfg.Batch.MinWindowMs)
	envInt64("REALTIME_BATCH_MAX_WINDOW_MS", &cfg.Batch.MaxWindowMs)
	envInt("REALTIME_BATCH_MAX_SIZE", &cfg.Batch.MaxSize)
	envInt("REALTIME_CONFLATION_PERCENT", &cfg.Batch.ConflationPercent)
	envInt("REALTIME_COMPRESS_THRESHOLD_BYTES", &cfg.Batch.CompressThresholdBytes)

	envInt("REALTIME_FANOUT_MAX_OUTSTANDING", &cfg.Fanout.MaxOutstanding)
	envInt("REALTIME_FANOUT_QUARANTINE_AFTER", &cfg.Fanout.QuarantineAfter)
	envInt("REALTIME_FANOUT_MAX_CONNECTIONS_PER_TENANT", &cfg.Fanout.MaxConnectionsPerTenant)

	envInt64("REALTIME_PING_INTERVAL_MS", &cfg.Session.PingIntervalMs)
	envInt64("REALTIME_WRITE_TIMEOUT_MS", &cfg.Session.WriteTimeoutMs)

	envInt("REALTIME_LONGPOLL_MAX_BUFFERED", &cfg.LongPoll.MaxBuffered)
	envInt("REALTIME_LONGPOLL_MAX_WAITERS", &cfg.LongPoll.MaxWaiters)
	envInt64("REALTIME_LONGPOLL_TIMEOUT_MS", &cfg.LongPoll.TimeoutMs)
	envInt64("REALTIME_LONGPOLL_IDLE_EVICT_MS", &cfg.LongPoll.IdleEvictMs)
	envInt64("REALTIME_LONGPOLL_SWEEP_MS", &cfg.LongPoll.SweepIntervalMs)
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(key string, dst *int64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
