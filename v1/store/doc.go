// Package store abstracts the durable title and reservation records the
// coordination core reads from and writes through. It ships an in-memory
// implementation for tests and single-process setups, a GORM-backed
// implementation and a Redis-backed title snapshot store.
package store
