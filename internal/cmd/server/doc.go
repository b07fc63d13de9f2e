// Package serverrun wires the runtime and HTTP server into a single
// blocking entry point used by the CLI.
package serverrun
