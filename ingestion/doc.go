// Package ingestion writes page entries into the language indexes.
//
// The Pipeline type offers the single-page write path used by callers that
// already hold extracted text:
//   - AddPage validates an entry, upserts it and commits
//   - DeleteDocument and DeleteByPath remove records and commit
//   - ClearIndex drops whole language indexes
//
// Every page is its own durability point. A failure on one page never rolls
// back pages committed before it.
//
// Batch ingestion runs an extractor over many sources on a worker pool. Start
// returns a Task that reports progress, can be canceled between pages, and
// resolves to a Report listing per-document failures. An extraction failure
// for one page or document never aborts the rest of the batch.
package ingestion
