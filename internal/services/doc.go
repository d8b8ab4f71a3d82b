// Package services implements the HTTP client for the collection backend.
//
// # Client
//
// [Client] satisfies [navigator.Fetcher], so every configured collection pages through the same client.
// Requests pass through a [rate.Limiter] before they are sent; waiting honours the request context.
//
// Page fragments are returned as raw bytes for the navigator and decoded into [models.TablePage] only by callers
// that need the rows. The count endpoint answers the zero-based last page index as a bare integer. A negative
// answer means the collection does not exist.
//
// # Snapshots and Exports
//
// Snapshot pages come from the codes endpoint, one page of [models.Snapshot] per request. Exports return
// [models.Download] values named after the response's Content-Disposition header.
//
// # Error Handling
//
// Failures are mapped onto the shared transport errors:
//   - [shared.ErrNetworkFailure] : the request could not be sent or the body could not be read
//   - [shared.ErrNotFound] : status 404, or a negative count
//   - [shared.ErrServerError] : any other non-2xx status, or an undecodable body
//
// Context cancellation is passed through unchanged so callers can tell it apart from a failure.
package services
