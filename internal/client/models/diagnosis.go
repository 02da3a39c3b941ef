package models

import (
	"errors"
	"fmt"
	"time"
)

// TimestampLayout is the fixed-width UTC form used to persist CreatedAt.
// Fixed width keeps lexical order equal to chronological order in SQL.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var (
	ErrSyncedWithoutRemoteID = errors.New("synced record must carry a remote id")
	ErrConfidenceRange       = errors.New("confidence must be within [0, 1]")
)

// DiagnosisRecord is one diagnosis outcome, local or remote-confirmed.
type DiagnosisRecord struct {
	// LocalID is assigned by the local store on insert and never reused.
	// It is never sent to the remote service.
	LocalID int64

	// RemoteID is the id assigned by the remote authority; nil for
	// offline-originated records that were never confirmed.
	RemoteID *string

	Crop       string
	Disease    string
	Confidence float64
	Advice     Advice

	// ImageLocation is either a local file path or a remote URL.
	ImageLocation string

	// CreatedAt is the ordering key for every list read.
	CreatedAt time.Time

	// Synced is true iff the content is backed by server-confirmed data.
	Synced bool
}

// Validate checks the per-record invariants enforced on insert.
func (r DiagnosisRecord) Validate() error {
	if r.Synced && r.RemoteID == nil {
		return ErrSyncedWithoutRemoteID
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: %v", ErrConfidenceRange, r.Confidence)
	}
	return nil
}

// RemoteIDOrEmpty returns the remote id or "" when absent.
func (r DiagnosisRecord) RemoteIDOrEmpty() string {
	if r.RemoteID == nil {
		return ""
	}
	return *r.RemoteID
}

// Clone returns a deep copy so cached views never alias each other.
func (r DiagnosisRecord) Clone() DiagnosisRecord {
	out := r
	if r.RemoteID != nil {
		id := *r.RemoteID
		out.RemoteID = &id
	}
	out.Advice = r.Advice.Clone()
	return out
}

// CloneRecords deep-copies a list of records. A nil input yields an empty,
// non-nil slice.
func CloneRecords(in []DiagnosisRecord) []DiagnosisRecord {
	out := make([]DiagnosisRecord, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses an ISO-8601 timestamp as produced by FormatTimestamp
// or by the remote service (RFC 3339 with optional fraction).
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC().Truncate(time.Millisecond), nil
}
