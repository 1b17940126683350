// Package catalog persists the update tree and per-host install state in
// SQLite and exposes helpers for reconciliation and status queries.
//
// The Store manages database connections, schema initialization, soft-delete
// marking, host pair seeding, and the read projections the CLI renders.
// Updates and files are never physically removed: a scan that no longer
// observes a path sets its deleted flag, and every query filters on
// (deleted IS NULL OR deleted = 0) so historical install records survive.
//
// Treat this package as the single source of truth for catalog semantics;
// when you add columns, update schema.sql and bump schemaVersion.
package catalog
