// Package store keeps a SQLite history of harness runs.
//
// The harness itself never persists anything; the CLI writes one RunRecord
// per run when given --db, and reads them back for the history command.
//
// Schema:
//
//	runs(id, environment, created_at, passes, fails, skipped,
//	     undefined_alias_groups, success_rate)
//	outcomes(run_id, idx, name, status, code, message, note,
//	         missing_dependencies, missing_aliases)
//
// Run IDs are UUIDv7 strings, so ordering by id follows creation order.
// List columns (missing_dependencies, missing_aliases) hold JSON arrays.
package store
