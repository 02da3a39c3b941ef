package diagnoses

import (
	"context"
	"errors"

	"github.com/agriai/agrisync/internal/client/models"
)

// ErrNotFound is returned by Get when no row has the requested local id.
var ErrNotFound = errors.New("diagnosis not found")

// Repository is the Local Record Store. All failures other than ErrNotFound
// match common.ErrStorageFailure.
type Repository interface {
	// Insert stores rec and returns the assigned local id, also written back
	// to rec.LocalID. A record whose remote id is already stored replaces
	// that row's content instead of adding a second row.
	Insert(ctx context.Context, rec *models.DiagnosisRecord) (int64, error)

	// ListAll returns every record, newest first. An empty table yields an
	// empty slice.
	ListAll(ctx context.Context) ([]models.DiagnosisRecord, error)

	// Get returns one record by local id.
	Get(ctx context.Context, localID int64) (*models.DiagnosisRecord, error)

	// DeleteByLocalID removes a row. Deleting a missing row is not an error.
	DeleteByLocalID(ctx context.Context, localID int64) error

	// MergeRemoteBatch upserts the remote history by remote id in one
	// transaction. Unknown ids are inserted as synced rows; known ids only get
	// their image location refreshed and are marked synced. Idempotent.
	MergeRemoteBatch(ctx context.Context, batch []models.RemoteDiagnosis) error

	// Clear removes every row.
	Clear(ctx context.Context) error
}
