// Package repositories implements SQLite persistence for export history.
//
// [ExportRepository] implements [models.Repository] for [models.ExportRecord]. Records are soft deleted via their
// deleted_at timestamp and excluded from queries afterwards.
//
// Sequence numbers provide stable, human-readable ordering (export #12) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
//
// [HistoryRecorder] adapts the repository to the recorder the batch export task reports finished files to.
package repositories
