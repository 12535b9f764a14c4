// Package catalog defines the persistent side of the library catalog:
// identifiers and their equivalence graph, editions, contributors,
// license pools, delivery mechanisms, hyperlinks and their fetched
// representations, classifications, measurements and coverage records.
//
// Storage is abstracted behind Store. Entities returned by a Store are
// mutated in place by the merge engines and written back with the
// matching Update call. Natural keys are found-or-created idempotently.
//
// The package also owns presentation recalculation for an Edition
// (author strings, sort title, permanent work ID and cover), since it
// depends only on catalog state.
package catalog
