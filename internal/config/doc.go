// Package config provides loading and environment overlay for the realtime
// delivery engine configuration. It exposes a Default() baseline, Load() for
// JSON or YAML files, and FromEnv() to overlay REALTIME_* variables.
//
// All engine tunables live here and are passed at construction time; nothing
// reads the environment on a hot path.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/realtime.yaml"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
package config
