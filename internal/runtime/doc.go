// Package runtime wires storage, configuration, and the delivery engine's
// component graph for a single-node instance.
package runtime
