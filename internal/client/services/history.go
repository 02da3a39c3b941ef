package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/agriai/agrisync/internal/client/client"
	"github.com/agriai/agrisync/internal/client/models"
	"github.com/agriai/agrisync/internal/client/repositories/diagnoses"
	"github.com/agriai/agrisync/internal/logging"
	"golang.org/x/sync/singleflight"
)

// DefaultFreshFor is how long a reconciled view is served without a refresh.
const DefaultFreshFor = 5 * time.Minute

// HistoryService is the reconciler. GetHistory always answers from the Local
// Record Store and, when online and signed in, merges the remote history
// into it first. Remote problems are logged, never returned.
type HistoryService struct {
	store    diagnoses.Repository
	remote   client.Client
	net      Connectivity
	auth     Auth
	log      logging.Logger
	freshFor time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[CacheKey]*cacheEntry
	group   singleflight.Group

	// mergeMu serializes remote merges against BeginMutation. mutations
	// counts open mutations and is guarded by mu.
	mergeMu   sync.Mutex
	mutations int

	baseCtx    context.Context
	baseCancel context.CancelFunc
	bg         sync.WaitGroup
}

var _ Invalidator = (*HistoryService)(nil)

// HistoryOption customizes a HistoryService.
type HistoryOption func(*HistoryService)

// WithFreshFor sets the window during which a cached view is served as is.
func WithFreshFor(d time.Duration) HistoryOption {
	return func(h *HistoryService) { h.freshFor = d }
}

// WithHistoryClock overrides the clock used for cache ages.
func WithHistoryClock(now func() time.Time) HistoryOption {
	return func(h *HistoryService) { h.now = now }
}

func NewHistoryService(store diagnoses.Repository, remote client.Client, net Connectivity, auth Auth, log logging.Logger, opts ...HistoryOption) *HistoryService {
	if log == nil {
		log = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &HistoryService{
		store:      store,
		remote:     remote,
		net:        net,
		auth:       auth,
		log:        log,
		freshFor:   DefaultFreshFor,
		now:        time.Now,
		entries:    make(map[CacheKey]*cacheEntry),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Key returns the cache key for the current connectivity and session.
func (h *HistoryService) Key() CacheKey {
	k := CacheKey{Connected: h.net.IsConnected()}
	if h.auth.Authenticated() {
		k.Identity = h.auth.Identity()
	}
	return k
}

// GetHistory returns the merged history, newest first. A fresh cached view
// is returned directly; an aged one is returned while a refresh runs in the
// background; otherwise the caller waits for a reconciliation pass. The only
// error returned is a failure to read the Local Record Store.
func (h *HistoryService) GetHistory(ctx context.Context) ([]models.DiagnosisRecord, error) {
	key := h.Key()

	h.mu.Lock()
	if e, ok := h.entries[key]; ok && e.valid {
		view := models.CloneRecords(e.view)
		stale := h.now().Sub(e.fetchedAt) > h.freshFor
		h.mu.Unlock()
		if stale {
			h.refreshInBackground(key)
		}
		return view, nil
	}
	h.mu.Unlock()

	return h.wait(ctx, key)
}

// Refresh discards every cached view and runs a pass for the current key.
func (h *HistoryService) Refresh(ctx context.Context) ([]models.DiagnosisRecord, error) {
	h.Invalidate()
	return h.wait(ctx, h.Key())
}

// Close cancels background refreshes and waits for them.
func (h *HistoryService) Close() {
	h.baseCancel()
	h.bg.Wait()
}

func (h *HistoryService) wait(ctx context.Context, key CacheKey) ([]models.DiagnosisRecord, error) {
	ch := h.group.DoChan(key.String(), func() (any, error) {
		return h.reconcile(key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return models.CloneRecords(res.Val.([]models.DiagnosisRecord)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *HistoryService) refreshInBackground(key CacheKey) {
	if h.baseCtx.Err() != nil {
		return
	}
	h.bg.Add(1)
	go func() {
		defer h.bg.Done()
		_, _, _ = h.group.Do(key.String(), func() (any, error) {
			return h.reconcile(key)
		})
	}()
}

// reconcile runs one pass for key: read local, optionally fetch and merge
// remote, re-read. The result is cached only if nothing invalidated or
// cancelled the entry meanwhile. Cancelling the pass only stops the remote
// fetch and merge; local reads run until Close.
func (h *HistoryService) reconcile(key CacheKey) ([]models.DiagnosisRecord, error) {
	ctx, cancel := context.WithCancel(h.baseCtx)
	defer cancel()

	h.mu.Lock()
	e := h.entryLocked(key)
	e.cancel = cancel
	gen := e.gen
	h.mu.Unlock()

	view, err := h.store.ListAll(h.baseCtx)
	if err != nil {
		h.finish(key, gen, nil)
		return nil, err
	}

	if key.canReconcile() {
		view = h.mergeRemote(ctx, key, gen, view)
	}

	h.finish(key, gen, view)
	return view, nil
}

// mergeRemote returns the re-read view after a successful merge, or local
// unchanged when any step fails.
func (h *HistoryService) mergeRemote(ctx context.Context, key CacheKey, gen uint64, local []models.DiagnosisRecord) []models.DiagnosisRecord {
	remote, err := h.remote.History(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			h.log.Debug(ctx, "history fetch cancelled", "key", key.String())
		} else {
			h.log.Warn(ctx, "history fetch failed, serving local records", "error", err)
		}
		return local
	}

	h.mergeMu.Lock()
	defer h.mergeMu.Unlock()

	if !h.mergeAllowed(key, gen) || ctx.Err() != nil {
		h.log.Debug(ctx, "history pass superseded, skipping merge", "key", key.String())
		return local
	}

	if err := h.store.MergeRemoteBatch(ctx, remote); err != nil {
		h.log.Warn(ctx, "history merge failed, serving local records", "error", err)
		return local
	}

	merged, err := h.store.ListAll(h.baseCtx)
	if err != nil {
		h.log.Warn(ctx, "re-reading merged history failed", "error", err)
		return local
	}
	h.log.Debug(ctx, "history merged", "remote", len(remote), "rows", len(merged))
	return merged
}

// mergeAllowed reports whether a pass started at gen may still write remote
// rows: its entry was not superseded and no mutation is open.
func (h *HistoryService) mergeAllowed(key CacheKey, gen uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[key]
	return ok && e.gen == gen && h.mutations == 0
}

// finish stores view for key when gen is still current. A nil view only
// releases the cancel func.
func (h *HistoryService) finish(key CacheKey, gen uint64, view []models.DiagnosisRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e := h.entryLocked(key)
	if e.gen != gen {
		return
	}
	e.cancel = nil
	if view == nil {
		return
	}
	e.view = models.CloneRecords(view)
	e.fetchedAt = h.now()
	e.valid = true
}
