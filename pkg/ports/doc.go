// Package ports declares the driven-side interfaces of the interpreter:
// where flow graphs come from, where session state is persisted, and how
// cross-replica access is serialized. Adapters live under pkg/adapters and
// pkg/graph.
package ports
