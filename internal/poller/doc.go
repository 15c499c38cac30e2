// Package poller is the incremental polling engine.
//
// One Poll cycle loads the tenant configuration, resolves a cached handle
// for every configured source, fetches a bounded batch of recent events,
// drops those at or below the source's cursor, dispatches the rest in
// chronological order and advances the cursor. At the end of the cycle
// the handle cache evicts every handle that was not referenced.
//
// Cycles are serialized. Within a cycle tenants (sorted by name) and their
// sources are processed sequentially, and a failure in one source never
// stops the others.
package poller
