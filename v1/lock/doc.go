// Package lock provides a per-key lock registry with lazy handle creation.
// Callers can acquire a key's lock with no wait, a bounded wait or a
// cancellable blocking wait. The inventory coordinator uses one handle per
// title so unrelated titles proceed fully in parallel.
package lock
