// Package core defines the domain model shared by every olrs package:
// page entries, stored records, hits, match modes, and the error taxonomy.
//
// Errors are classified with three sentinels that callers test with errors.Is:
//
//   - ErrStorage: an index could not be created, opened, written, or committed
//   - ErrInvalidArgument: the caller passed something malformed
//   - ErrExtraction: an extractor failed for a document or page
package core
