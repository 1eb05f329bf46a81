// Package catalog holds the shared read-only data model consumed by the
// inventory coordinator, the reservation queue manager and the recommendation
// orchestrator.
package catalog
