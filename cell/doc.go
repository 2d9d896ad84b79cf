// Package cell implements runtime borrow checking for natively-owned payloads
// embedded in a reference-counted host object system.
//
// The host can hand out any number of simultaneously-live handles to the same
// object, from any goroutine, and has no notion of exclusive or shared access.
// This package enforces the invariant "at most one live mutable access, or any
// number of concurrent live immutable accesses, never both" on the native
// payload behind those handles.
//
// This package contains:
//   - Atomic borrow flag and checker (one flag per mutable class chain)
//   - Mutability classification across inheritance chains
//   - Per-instance layout with fixed slot offsets
//   - Scoped borrow guards with release-on-exit
//   - Goroutine-affinity checking for non-thread-safe payloads
//
// Every acquire is non-blocking: a conflicting borrow fails immediately with a
// recoverable error, never by waiting. The host must never block a native
// thread while holding its own global execution token, so no primitive in this
// package ever blocks.
package cell
