// Package sqlite keeps Google Drive state in a local SQLite database through
// modernc.org/sqlite, so the binary builds without cgo.
//
// The database holds change-feed cursors, one audit row per download, the
// registered push channels and a cache of shared drives. Times are Unix
// milliseconds. The schema is a series of goose migrations embedded from
// migrations/ and applied when the store opens.
//
// The file defaults to ~/.connect/googledrive/state.db and is opened in WAL
// mode with a busy timeout, so separate CLI processes can share it.
package sqlite
