// Package recommend computes personalized title rankings by running several
// pluggable scoring strategies in parallel under a bounded deadline, merging
// their rank-weighted output and caching the result per user with a TTL.
// Strategy failures and deadline overruns degrade to a default list rather
// than surfacing as errors.
package recommend
