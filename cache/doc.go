// Package cache provides the short-lived response cache for idempotent
// API reads.
//
// Only GET-like results are ever cached; mutating calls instead
// invalidate the entries under their resource's key prefix, immediately
// on success. Keys are derived deterministically from method, path, and
// a stable serialization of query parameters, so identical logical
// requests collide on the same key regardless of parameter order.
//
// The Memory store enforces per-entry TTLs (an expired entry is treated
// as absent and removed lazily) and a MaxEntries bound: when full, the
// least-recently-inserted entry is evicted first.
//
// TTLs are policy, not mechanism: each provider façade carries a TTLTable
// mapping endpoint-path patterns to durations (reference data long,
// near-real-time metrics short). The values are tuning configuration and
// carry no semantic meaning.
package cache
