// Package services contains the sync engine: the history reconciler with its
// view cache, the prediction coordinator and the optimistic delete
// coordinator. All three share one Local Record Store and one remote client,
// injected by the caller.
package services

// Connectivity is the read-only network gate.
type Connectivity interface {
	IsConnected() bool
}

// Auth is the read-only session gate. Identity returns "" when the session
// is not authenticated.
type Auth interface {
	Authenticated() bool
	Identity() string
}

// Invalidator marks cached history views stale after a local write.
type Invalidator interface {
	Invalidate()
}
