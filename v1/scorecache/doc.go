// Package scorecache provides the time-limited result cache used by the
// recommendation orchestrator. The in-memory implementation combines TTL
// expiry with LRU eviction; Redis and ristretto backends are available for
// setups that want the cache outside the process heap.
package scorecache
