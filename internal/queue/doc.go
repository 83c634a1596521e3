// Package queue persists the local upload queue in SQLite.
//
// The store owns three kinds of state that must survive restarts: the images
// still waiting for upload (in import order), the user's last job code and
// file type selection, and the cached job-code catalogue used when the
// backend is unreachable. Writes retry on SQLITE_BUSY so the CLI and a
// running upload can share the database file.
//
// The schema is versioned; opening a database created by a different schema
// version fails with ErrSchemaMismatch instead of migrating in place.
package queue
