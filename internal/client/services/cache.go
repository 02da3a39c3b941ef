package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agriai/agrisync/internal/client/models"
)

// CacheKey identifies one cached history view. A change in connectivity or
// account yields a different key and therefore a fresh reconciliation.
type CacheKey struct {
	Connected bool
	Identity  string
}

func (k CacheKey) String() string {
	return fmt.Sprintf("history|%t|%s", k.Connected, k.Identity)
}

// canReconcile reports whether a pass for this key may call the remote.
func (k CacheKey) canReconcile() bool {
	return k.Connected && k.Identity != ""
}

type cacheEntry struct {
	view      []models.DiagnosisRecord
	fetchedAt time.Time
	valid     bool

	// gen is bumped whenever a pass result must be discarded: on
	// invalidation, cancellation and restore.
	gen    uint64
	cancel context.CancelFunc
}

// Snapshot is a value copy of one cache entry taken before an optimistic
// mutation.
type Snapshot struct {
	Key       CacheKey
	Present   bool
	View      []models.DiagnosisRecord
	FetchedAt time.Time
	Valid     bool
}

// entryLocked returns the entry for key, creating it. mu must be held.
func (h *HistoryService) entryLocked(key CacheKey) *cacheEntry {
	e, ok := h.entries[key]
	if !ok {
		e = &cacheEntry{}
		h.entries[key] = e
	}
	return e
}

// Snapshot copies the cached view for key.
func (h *HistoryService) Snapshot(key CacheKey) Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.entries[key]
	if !ok {
		return Snapshot{Key: key}
	}
	return Snapshot{
		Key:       key,
		Present:   true,
		View:      models.CloneRecords(e.view),
		FetchedAt: e.fetchedAt,
		Valid:     e.valid,
	}
}

// Apply rewrites the cached view for key in place. It is a no-op when
// nothing is cached for key.
func (h *HistoryService) Apply(key CacheKey, fn func([]models.DiagnosisRecord) []models.DiagnosisRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.entries[key]
	if !ok || e.view == nil {
		return
	}
	e.view = fn(models.CloneRecords(e.view))
}

// Restore puts snap back verbatim and discards any pass started before it.
func (h *HistoryService) Restore(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e := h.entryLocked(snap.Key)
	e.gen++
	if !snap.Present {
		e.view, e.fetchedAt, e.valid = nil, time.Time{}, false
		return
	}
	e.view = models.CloneRecords(snap.View)
	e.fetchedAt = snap.FetchedAt
	e.valid = snap.Valid
}

// CancelInFlight aborts the reconciliation pass running for key, if any. Its
// result is dropped and later readers start a new pass.
func (h *HistoryService) CancelInFlight(key CacheKey) {
	h.mu.Lock()
	e := h.entryLocked(key)
	e.gen++
	cancel := e.cancel
	e.cancel = nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	h.group.Forget(key.String())
}

// BeginMutation cancels the pass running for key and blocks remote merges
// until the returned func is called. A merge already writing finishes first.
// The returned func invalidates key; calling it again is a no-op.
func (h *HistoryService) BeginMutation(key CacheKey) (end func()) {
	h.CancelInFlight(key)

	h.mergeMu.Lock()
	h.mu.Lock()
	h.mutations++
	h.entryLocked(key).gen++
	h.mu.Unlock()
	h.mergeMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			h.mutations--
			e := h.entryLocked(key)
			e.gen++
			e.valid = false
			h.mu.Unlock()
			h.group.Forget(key.String())
		})
	}
}

// Invalidate marks every cached view stale. The next read for any key runs
// a fresh pass and waits for it.
func (h *HistoryService) Invalidate() {
	h.mu.Lock()
	keys := make([]CacheKey, 0, len(h.entries))
	for k, e := range h.entries {
		e.valid = false
		e.gen++
		keys = append(keys, k)
	}
	h.mu.Unlock()

	for _, k := range keys {
		h.group.Forget(k.String())
	}
}

func removeLocal(localID int64) func([]models.DiagnosisRecord) []models.DiagnosisRecord {
	return func(view []models.DiagnosisRecord) []models.DiagnosisRecord {
		out := view[:0]
		for _, r := range view {
			if r.LocalID != localID {
				out = append(out, r)
			}
		}
		return out
	}
}
