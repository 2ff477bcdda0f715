// Package core provides the business logic for dataset ingestion, summary
// statistics, and result lifecycle management.
//
// This package contains all domain logic independent of any UI or transport
// layer. It can be used by web handlers, CLI tools, or tests without
// modification.
//
// # Architecture
//
// The package is organized around a few key concepts:
//
//   - Table: the canonical, immutable in-memory form of an uploaded tabular
//     file. Column types (numeric or text) are inferred once at parse time
//     and never re-inferred downstream.
//   - Store: a generic TTL-keyed cache guarding access with a single lock.
//     One instance holds uploaded datasets, another holds computed results.
//     Expiry is absolute from creation and enforced on every Get, so
//     visibility never depends on the background reaper.
//   - Engine: the opaque statistics capability. Any implementation that
//     returns a fixed metric set for a batch of numeric columns can be
//     plugged in; the service preserves its metric names and order verbatim.
//   - Service: the entry point for all operations (upload, summarize,
//     download). It owns both stores and the engine.
//
// # Lifecycle
//
// Every stored entry moves through Created -> Active -> Expired -> Evicted.
// Expiry happens purely by clock; eviction happens on the next reaper sweep
// or eagerly when a Get encounters an expired entry. Callers can never
// distinguish "expired" from "never existed": both are a plain not-found.
package core
