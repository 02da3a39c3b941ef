package diagnoses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agriai/agrisync/internal/client/models"
	"github.com/agriai/agrisync/internal/common"
	"github.com/agriai/agrisync/internal/dbx"
)

const selectColumns = `local_id, remote_id, crop, disease, confidence, advice, advice_kind, image_location, synced, created_at`

// SQLiteRepository implements Repository over a single SQLite handle.
type SQLiteRepository struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

var _ Repository = (*SQLiteRepository)(nil)

// Option customizes a SQLiteRepository.
type Option func(*SQLiteRepository)

// WithClock sets the clock used when a record or remote row has no
// creation time.
func WithClock(now func() time.Time) Option {
	return func(r *SQLiteRepository) { r.now = now }
}

func NewSQLiteRepository(db *sql.DB, opts ...Option) *SQLiteRepository {
	r := &SQLiteRepository{db: db, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *SQLiteRepository) Insert(ctx context.Context, rec *models.DiagnosisRecord) (int64, error) {
	const op = "insert diagnosis"
	if rec == nil {
		return 0, common.Storage(op, errors.New("nil record"))
	}
	if err := rec.Validate(); err != nil {
		return 0, common.Storage(op, err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()

	query := `INSERT INTO diagnoses (remote_id, crop, disease, confidence, advice, advice_kind, image_location, synced, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(remote_id) WHERE remote_id IS NOT NULL DO UPDATE SET
			crop = excluded.crop,
			disease = excluded.disease,
			confidence = excluded.confidence,
			advice = excluded.advice,
			advice_kind = excluded.advice_kind,
			image_location = COALESCE(excluded.image_location, diagnoses.image_location),
			synced = excluded.synced,
			created_at = excluded.created_at
		RETURNING local_id`

	var remoteID sql.NullString
	if rec.RemoteID != nil {
		remoteID = sql.NullString{String: *rec.RemoteID, Valid: true}
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		remoteID,
		rec.Crop,
		rec.Disease,
		rec.Confidence,
		rec.Advice.Raw(),
		string(rec.Advice.KindOrDefault()),
		nullable(rec.ImageLocation),
		boolInt(rec.Synced),
		models.FormatTimestamp(rec.CreatedAt),
	).Scan(&id)
	if err != nil {
		return 0, common.Storage(op, err)
	}
	rec.LocalID = id
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (models.DiagnosisRecord, error) {
	var (
		rec        models.DiagnosisRecord
		remoteID   sql.NullString
		advice     string
		adviceKind string
		image      sql.NullString
		synced     int
		createdAt  string
	)
	if err := s.Scan(&rec.LocalID, &remoteID, &rec.Crop, &rec.Disease, &rec.Confidence,
		&advice, &adviceKind, &image, &synced, &createdAt); err != nil {
		return rec, err
	}
	if remoteID.Valid {
		rec.RemoteID = models.StringPtr(remoteID.String)
	}
	a, err := models.AdviceFromColumns(adviceKind, advice)
	if err != nil {
		return rec, fmt.Errorf("row %d: %w", rec.LocalID, err)
	}
	rec.Advice = a
	rec.ImageLocation = image.String
	rec.Synced = synced != 0
	t, err := models.ParseTimestamp(createdAt)
	if err != nil {
		return rec, fmt.Errorf("row %d: %w", rec.LocalID, err)
	}
	rec.CreatedAt = t
	return rec, nil
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]models.DiagnosisRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listAll(ctx)
}

func (r *SQLiteRepository) listAll(ctx context.Context) ([]models.DiagnosisRecord, error) {
	const op = "list diagnoses"
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM diagnoses ORDER BY created_at DESC, local_id DESC`)
	if err != nil {
		return nil, common.Storage(op, err)
	}
	defer rows.Close()

	result := []models.DiagnosisRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, common.Storage(op, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Storage(op, err)
	}
	return result, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, localID int64) (*models.DiagnosisRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM diagnoses WHERE local_id = ?`, localID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: local id %d", ErrNotFound, localID)
	}
	if err != nil {
		return nil, common.Storage("get diagnosis", err)
	}
	return &rec, nil
}

func (r *SQLiteRepository) DeleteByLocalID(ctx context.Context, localID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `DELETE FROM diagnoses WHERE local_id = ?`, localID)
	return common.Storage("delete diagnosis", err)
}

func (r *SQLiteRepository) MergeRemoteBatch(ctx context.Context, batch []models.RemoteDiagnosis) error {
	if len(batch) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	query := `INSERT INTO diagnoses (remote_id, crop, disease, confidence, advice, advice_kind, image_location, synced, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(remote_id) WHERE remote_id IS NOT NULL DO UPDATE SET
			image_location = COALESCE(excluded.image_location, diagnoses.image_location),
			synced = 1`

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, d := range batch {
			if d.ID == "" {
				continue
			}
			rec := d.ToRecord(now)
			if _, err := tx.ExecContext(ctx, query,
				d.ID,
				rec.Crop,
				rec.Disease,
				rec.Confidence,
				rec.Advice.Raw(),
				string(rec.Advice.KindOrDefault()),
				nullable(rec.ImageLocation),
				models.FormatTimestamp(rec.CreatedAt),
			); err != nil {
				return fmt.Errorf("upsert remote %s: %w", d.ID, err)
			}
		}
		return nil
	})
	return common.Storage("merge remote batch", err)
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `DELETE FROM diagnoses`)
	return common.Storage("clear diagnoses", err)
}
