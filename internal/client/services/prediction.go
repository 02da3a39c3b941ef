package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agriai/agrisync/internal/client/client"
	"github.com/agriai/agrisync/internal/client/models"
	"github.com/agriai/agrisync/internal/client/repositories/diagnoses"
	"github.com/agriai/agrisync/internal/common"
	"github.com/agriai/agrisync/internal/filex"
	"github.com/agriai/agrisync/internal/logging"
)

// Offline stub result. The stub stands in for the model when no network
// call is possible and is never uploaded later.
const (
	StubDisease    = "Fall Armyworm (Offline Prediction)"
	StubConfidence = 0.89
	StubAdvice     = "Fall Armyworm creates ragged holes in leaves.\n\n" +
		"Treatment:\n1. Apply neem oil solution.\n2. Use pheromone traps.\n\n" +
		"Prevention:\n- Early planting."

	DefaultStubDelay = 2 * time.Second
)

// ErrSubmissionInProgress is returned when Submit is called while another
// submission is still running.
var ErrSubmissionInProgress = errors.New("a prediction is already being submitted")

// PredictionState is the coordinator's lifecycle state.
type PredictionState string

const (
	StateIdle       PredictionState = "idle"
	StateSubmitting PredictionState = "submitting"
	StateCompleted  PredictionState = "completed"
	StateFailed     PredictionState = "failed"
)

// PredictionStatus is the observable outcome of the last submission.
type PredictionStatus struct {
	State   PredictionState
	Record  *models.DiagnosisRecord
	Err     error
	Message string
}

// PredictionRequest describes one image to diagnose.
type PredictionRequest struct {
	ImagePath string
	Crop      string
	Symptoms  string
	Location  string
}

func (r PredictionRequest) validate() error {
	if strings.TrimSpace(r.ImagePath) == "" {
		return fmt.Errorf("%w: image path is required", common.ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Crop) == "" {
		return fmt.Errorf("%w: crop is required", common.ErrInvalidRequest)
	}
	return nil
}

// PredictionService submits images either to the remote model or, when
// offline or signed out, to a local stub. Both outcomes are stored as one
// record and the history cache is invalidated.
type PredictionService struct {
	store     diagnoses.Repository
	remote    client.Client
	net       Connectivity
	auth      Auth
	history   Invalidator
	log       logging.Logger
	stubDelay time.Duration
	now       func() time.Time
	readImage func(path string) ([]byte, error)

	mu     sync.Mutex
	status PredictionStatus
}

// PredictionOption customizes a PredictionService.
type PredictionOption func(*PredictionService)

// WithStubDelay sets the simulated latency of the offline stub.
func WithStubDelay(d time.Duration) PredictionOption {
	return func(s *PredictionService) { s.stubDelay = d }
}

// WithPredictionClock overrides the clock used for record timestamps.
func WithPredictionClock(now func() time.Time) PredictionOption {
	return func(s *PredictionService) { s.now = now }
}

// WithImageReader overrides how the image file is loaded for upload.
func WithImageReader(fn func(path string) ([]byte, error)) PredictionOption {
	return func(s *PredictionService) { s.readImage = fn }
}

func NewPredictionService(store diagnoses.Repository, remote client.Client, net Connectivity, auth Auth, history Invalidator, log logging.Logger, opts ...PredictionOption) *PredictionService {
	if log == nil {
		log = logging.Nop()
	}
	s := &PredictionService{
		store:     store,
		remote:    remote,
		net:       net,
		auth:      auth,
		history:   history,
		log:       log,
		stubDelay: DefaultStubDelay,
		now:       time.Now,
		readImage: filex.ReadImage,
		status:    PredictionStatus{State: StateIdle},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Status returns the current state and the outcome of the last submission.
func (s *PredictionService) Status() PredictionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	if st.Record != nil {
		rec := st.Record.Clone()
		st.Record = &rec
	}
	return st
}

// Submit runs one prediction and stores the result. Remote failures leave
// the store untouched and are returned as is.
func (s *PredictionService) Submit(ctx context.Context, req PredictionRequest) (*models.DiagnosisRecord, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.status.State == StateSubmitting {
		s.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	s.status = PredictionStatus{State: StateSubmitting}
	s.mu.Unlock()

	var (
		rec models.DiagnosisRecord
		err error
	)
	if s.net.IsConnected() && s.auth.Authenticated() {
		rec, err = s.predictRemote(ctx, req)
	} else {
		rec, err = s.predictOffline(ctx, req)
	}
	if err == nil {
		_, err = s.store.Insert(ctx, &rec)
	}
	if err != nil {
		s.fail(ctx, err)
		return nil, err
	}

	s.history.Invalidate()

	s.mu.Lock()
	stored := rec.Clone()
	s.status = PredictionStatus{State: StateCompleted, Record: &stored}
	s.mu.Unlock()

	s.log.Info(ctx, "diagnosis stored", "local_id", rec.LocalID, "synced", rec.Synced, "disease", rec.Disease)
	return &rec, nil
}

func (s *PredictionService) fail(ctx context.Context, err error) {
	msg := common.UserMessage(err)
	s.log.Warn(ctx, "prediction failed", "error", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = PredictionStatus{State: StateFailed, Err: err, Message: msg}
}

func (s *PredictionService) predictRemote(ctx context.Context, req PredictionRequest) (models.DiagnosisRecord, error) {
	img, err := s.readImage(req.ImagePath)
	if err != nil {
		return models.DiagnosisRecord{}, fmt.Errorf("%w: %v", common.ErrInvalidRequest, err)
	}

	d, err := s.remote.Predict(ctx, client.PredictInput{
		Image:    bytes.NewReader(img),
		FileName: filepath.Base(req.ImagePath),
		CropType: req.Crop,
		Symptoms: req.Symptoms,
		Location: req.Location,
	})
	if err != nil {
		return models.DiagnosisRecord{}, err
	}

	rec := d.ToRecord(s.now())
	if rec.Crop == "" {
		rec.Crop = req.Crop
	}
	rec.ImageLocation = req.ImagePath
	return rec, nil
}

func (s *PredictionService) predictOffline(ctx context.Context, req PredictionRequest) (models.DiagnosisRecord, error) {
	if s.stubDelay > 0 {
		t := time.NewTimer(s.stubDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return models.DiagnosisRecord{}, ctx.Err()
		}
	}

	return models.DiagnosisRecord{
		Crop:          req.Crop,
		Disease:       StubDisease,
		Confidence:    StubConfidence,
		Advice:        models.PlainText(StubAdvice),
		ImageLocation: req.ImagePath,
		CreatedAt:     s.now(),
		Synced:        false,
	}, nil
}
