// Package diagnoses provides the Local Record Store: the persistent table of
// diagnosis records that every read is served from.
//
// # Overview
//
// Repository describes the store operations used by the services layer.
// SQLiteRepository implements it over the process-wide *sql.DB opened by
// client.InitDatabase.
//
// # Invariants
//
//   - local_id is assigned on insert and never reused (AUTOINCREMENT).
//   - At most one row exists per non-null remote_id.
//   - A synced row always carries a remote_id.
//   - Lists are ordered by created_at descending, ties by local_id descending.
//
// The schema enforces the first three as well, so a bug in a caller surfaces
// as a StorageFailure rather than a corrupt row.
//
// # Concurrency
//
// The store has a single writer. Every operation takes the repository mutex,
// and the handle is opened with one connection, so merges and deletes never
// interleave with each other or with reads.
//
// Typical Usage
//
//	repo := diagnoses.NewSQLiteRepository(db)
//	id, _ := repo.Insert(ctx, &rec)
//	list, _ := repo.ListAll(ctx)
//	_ = repo.MergeRemoteBatch(ctx, remote)
//	_ = repo.DeleteByLocalID(ctx, id)
package diagnoses
