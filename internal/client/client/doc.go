// Package client contains the client-side building blocks that talk to the
// outside world: the remote diagnosis API and the local database bootstrap.
//
// # Overview
//
//  1. A transport-agnostic contract (Client) for the three remote collaborator
//     endpoints: History, Predict and Delete.
//  2. A REST implementation (HTTPClient) that injects the bearer token and a
//     correlation id, validates response payloads against embedded JSON
//     schemas and maps failures to the shared error kinds.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations, ResetDatabase)
//     wiring a single-connection SQLite handle and the embedded goose
//     migrations.
//
// # Error Handling
//
// Non-2xx responses and transport errors are *common.RemoteError (matching
// common.ErrRemoteFailure); the Err field carries ErrUnauthorized, ErrNotFound
// or ErrUnavailable when the status maps to one. Payloads that are not JSON or
// do not satisfy their schema are *common.DecodeError.
package client
