// Package metadata holds the transfer records that ingesters build from
// an external source (identifiers, contributors, subjects, links,
// measurements, formats, circulation and bibliographic records) and the
// ReplacementPolicy that says how aggressively they are merged into the
// catalog.
//
// Records are built fresh for one ingestion call and never persisted.
package metadata
