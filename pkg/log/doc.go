// Package log provides the platform's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a custom handler that preserves our
// formatter/outputs pipeline. This allows adoption of the slog ecosystem
// while keeping consistent output and behavior across the codebase.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("server"), log.Str("tenant", "acme"))
//	l.Info("server started", log.Int("port", 8080))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config, supporting JSON
// or text formatting and a level string.
//
// # Interop
//
// To integrate with libraries expecting the standard library logger, use
// RedirectStdLog. Most code should remain against this facade.
package log
