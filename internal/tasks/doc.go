// Package tasks runs the long operations that sit on top of the HTTP client with real-time progress reporting.
//
// # Core Operations
//
//  1. [Engine.BatchExport] : concurrent export of many snapshot selections
//     - A fixed worker pool shares one [rate.Limiter]
//     - Each download is written with [formatter.WriteDownload]
//     - Completed exports are handed to the optional [Recorder]
//     - A JSON manifest summarises successes and failures
//
//  2. [Engine.Dump] : write every page of a paged collection to disk
//     - Resolves the last page through the count endpoint when one exists,
//     otherwise from the first page's own last index
//     - Page failures are collected and the dump continues
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// Updates use select with default so a slow reader never stalls the work.
package tasks
