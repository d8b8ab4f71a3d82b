// Package models defines the data exchanged with the collection backend and the records kept locally.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): JSON payloads served by the backend
//   - [TablePage] : one rendered page of a paged collection, including the controls it carries
//   - [Snapshot] : one saved code state of a participant
//   - [Suggestion] : a search suggestion
//   - [ExportRequest] : parameters of a range, step or full export
//   - [Download] : a named file returned by an export endpoint
//
// 2. Persistent Entities: Database-backed models
//   - [ExportRecord] : history entry for a completed export
//
// Persistent entities implement the [Model] interface. [Repository] defines the data access operations
// implemented in the repositories package.
package models
