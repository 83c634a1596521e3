// Package upload turns the local queue into remote blobs plus metadata rows.
//
// A run reserves a contiguous block of sequence indices once (Allocator),
// then walks the queue snapshot in fixed-size groups. Items inside a group
// upload concurrently through Uploader, which stores the blob, registers its
// metadata, and only then deletes the local copy. Groups run one after
// another. Index assignment depends only on queue position, so failures and
// completion order never renumber anything.
//
// Scheduler enforces at most one run at a time across processes and reports
// monotonic progress to an observer.
package upload
