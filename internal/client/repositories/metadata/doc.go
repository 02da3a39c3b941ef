// Package metadata persists small named values (session token, last sync
// markers) in the local SQLite database. All failures are
// *common.StorageError.
package metadata
