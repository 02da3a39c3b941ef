package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agriai/agrisync/internal/client/client"
	"github.com/agriai/agrisync/internal/client/models"
	"github.com/agriai/agrisync/internal/client/repositories/diagnoses"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeNet struct{ connected atomic.Bool }

func (n *fakeNet) IsConnected() bool { return n.connected.Load() }

type fakeAuth struct {
	mu       sync.Mutex
	identity string
}

func (a *fakeAuth) set(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.identity = id
}

func (a *fakeAuth) Authenticated() bool { return a.Identity() != "" }

func (a *fakeAuth) Identity() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.identity
}

// fakeClient plays the remote authority. Deleting an id also removes it from
// the served history.
type fakeClient struct {
	client.Client

	mu           sync.Mutex
	history      []models.RemoteDiagnosis
	historyErr   error
	historyCalls int
	// historyHook runs before History answers; returning an error aborts.
	historyHook func(ctx context.Context, call int) error

	predictResult *models.RemoteDiagnosis
	predictErr    error
	predictInputs []client.PredictInput

	deleteErr error
	deleted   []string
}

func (f *fakeClient) History(ctx context.Context) ([]models.RemoteDiagnosis, error) {
	f.mu.Lock()
	f.historyCalls++
	call := f.historyCalls
	hook := f.historyHook
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, call); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	out := make([]models.RemoteDiagnosis, len(f.history))
	copy(out, f.history)
	return out, nil
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.historyCalls
}

func (f *fakeClient) Predict(ctx context.Context, in client.PredictInput) (*models.RemoteDiagnosis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.predictInputs = append(f.predictInputs, in)
	if f.predictErr != nil {
		return nil, f.predictErr
	}
	d := *f.predictResult
	return &d, nil
}

func (f *fakeClient) Delete(ctx context.Context, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, remoteID)
	kept := f.history[:0]
	for _, d := range f.history {
		if d.ID != remoteID {
			kept = append(kept, d)
		}
	}
	f.history = kept
	return nil
}

type env struct {
	db      *sql.DB
	store   *diagnoses.SQLiteRepository
	remote  *fakeClient
	net     *fakeNet
	auth    *fakeAuth
	clock   *testClock
	history *HistoryService
	predict *PredictionService
	del     *DeletionService
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newEnv(t *testing.T, connected bool, identity string) *env {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := &env{
		db:     db,
		remote: &fakeClient{},
		net:    &fakeNet{},
		auth:   &fakeAuth{identity: identity},
		clock:  &testClock{now: t0},
	}
	e.net.connected.Store(connected)
	e.store = diagnoses.NewSQLiteRepository(db, diagnoses.WithClock(e.clock.Now))
	e.history = NewHistoryService(e.store, e.remote, e.net, e.auth, nil,
		WithHistoryClock(e.clock.Now), WithFreshFor(time.Minute))
	t.Cleanup(e.history.Close)
	e.predict = NewPredictionService(e.store, e.remote, e.net, e.auth, e.history, nil,
		WithStubDelay(0),
		WithPredictionClock(e.clock.Now),
		WithImageReader(func(string) ([]byte, error) { return []byte("JPEG"), nil }),
	)
	e.del = NewDeletionService(e.store, e.remote, e.net, e.auth, e.history, nil)
	return e
}

func (e *env) insertLocal(t *testing.T, crop string, at time.Time) models.DiagnosisRecord {
	t.Helper()
	rec := models.DiagnosisRecord{
		Crop: crop, Disease: StubDisease, Confidence: StubConfidence,
		Advice: models.PlainText(StubAdvice), ImageLocation: "/photos/" + crop + ".jpg", CreatedAt: at,
	}
	_, err := e.store.Insert(context.Background(), &rec)
	require.NoError(t, err)
	return rec
}

func remoteDiag(id, disease string, at time.Time) models.RemoteDiagnosis {
	return models.RemoteDiagnosis{
		ID: id, Disease: disease, Confidence: 0.7, Advice: models.PlainText("advice " + id),
		CropType: "Maize", ImageURL: "https://cdn/" + id + ".jpg", CreatedAt: models.FormatTimestamp(at),
	}
}

func localIDs(view []models.DiagnosisRecord) []int64 {
	out := make([]int64, 0, len(view))
	for _, r := range view {
		out = append(out, r.LocalID)
	}
	return out
}

func remoteIDs(view []models.DiagnosisRecord) []string {
	out := make([]string, 0, len(view))
	for _, r := range view {
		out = append(out, r.RemoteIDOrEmpty())
	}
	return out
}
