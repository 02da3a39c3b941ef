package client

import "errors"

// Causes carried in common.RemoteError.Err so callers can distinguish the
// usual failure classes with errors.Is.
var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)
