package metrics

import "sync/atomic"

// Counters is a set of named atomic counters shared by the core components.
// Values are monotonically non-decreasing until Reset is called.
type Counters struct {
	borrows     atomic.Uint64
	returns     atomic.Uint64
	failedOps   atomic.Uint64
	contentions atomic.Uint64
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64
}

// NewCounters returns a zeroed Counters set.
func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) IncBorrow()     { c.borrows.Add(1) }
func (c *Counters) IncReturn()     { c.returns.Add(1) }
func (c *Counters) IncFailedOp()   { c.failedOps.Add(1) }
func (c *Counters) IncContention() { c.contentions.Add(1) }
func (c *Counters) IncCacheHit()   { c.cacheHits.Add(1) }
func (c *Counters) IncCacheMiss()  { c.cacheMisses.Add(1) }

// Snapshot returns a point-in-time copy of all counters keyed by name. The
// map is owned by the caller.
func (c *Counters) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"borrows":      c.borrows.Load(),
		"returns":      c.returns.Load(),
		"failed_ops":   c.failedOps.Load(),
		"contentions":  c.contentions.Load(),
		"cache_hits":   c.cacheHits.Load(),
		"cache_misses": c.cacheMisses.Load(),
	}
}

// Reset zeroes every counter.
func (c *Counters) Reset() {
	c.borrows.Store(0)
	c.returns.Store(0)
	c.failedOps.Store(0)
	c.contentions.Store(0)
	c.cacheHits.Store(0)
	c.cacheMisses.Store(0)
}
