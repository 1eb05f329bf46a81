// Package inventory owns per-title mutual exclusion over the availability
// counters. Borrow waits a bounded time for the title lock and reports
// contention as an explicit retryable outcome; returns block until they
// complete. Aggregate reads and bulk restocks go through an independent
// global read/write lock.
package inventory
