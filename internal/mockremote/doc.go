// Package mockremote is an in-memory implementation of the job-media backend.
//
// It serves the allocation, blob upload, metadata, and job-code endpoints on a
// chi router, keeps everything it receives for inspection, and lets callers
// inject failures per endpoint. Tests mount it on httptest servers; the CLI
// exposes it through `jobmedia mock-server` for local development.
package mockremote
