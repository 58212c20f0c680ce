package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/finch-money/finch/internal/model"
)

// ImportBatchRepo is the file ledger: one row per import run, so re-running
// the same source file can be detected and refused.
type ImportBatchRepo struct{ db *sql.DB }

func NewImportBatchRepo(db *sql.DB) *ImportBatchRepo { return &ImportBatchRepo{db: db} }

func (r *ImportBatchRepo) Create(ctx context.Context, b model.ImportBatch) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO import_batches(id, source_file, profile, detected_encoding, row_count,
	 accepted, duplicates, malformed, started_at, status)
	VALUES(?, ?, ?, ?, 0, 0, 0, 0, ?, ?);
	`, b.ID, b.SourceFile, b.Profile, b.DetectedEncoding, b.StartedAt.UTC().Format(time.RFC3339), string(b.Status))
	return err
}

// Finalize records the outcome of a run. The errMsg is empty on success.
func (r *ImportBatchRepo) Finalize(ctx context.Context, b model.ImportBatch) error {
	var finished interface{}
	if !b.FinishedAt.IsZero() {
		finished = b.FinishedAt.UTC().Format(time.RFC3339)
	}
	_, err := r.db.ExecContext(ctx, `
	UPDATE import_batches SET
	 detected_encoding = ?,
	 row_count = ?,
	 accepted = ?,
	 duplicates = ?,
	 malformed = ?,
	 finished_at = ?,
	 status = ?,
	 error = ?
	WHERE id = ?;
	`, b.DetectedEncoding, b.RowCount, b.Accepted, b.Duplicates, b.Malformed, finished, string(b.Status), b.Error, b.ID)
	return err
}

// AlreadyImported reports whether a completed batch exists for the file.
func (r *ImportBatchRepo) AlreadyImported(ctx context.Context, sourceFile string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM import_batches WHERE source_file = ? AND status = ?;
	`, sourceFile, string(model.BatchCompleted)).Scan(&n)
	return n > 0, err
}

func (r *ImportBatchRepo) List(ctx context.Context) ([]model.ImportBatch, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, source_file, profile, detected_encoding, row_count, accepted, duplicates,
	 malformed, started_at, finished_at, status, error
	FROM import_batches ORDER BY started_at DESC;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ImportBatch
	for rows.Next() {
		var b model.ImportBatch
		var started string
		var finished, errMsg sql.NullString
		var status string
		if err := rows.Scan(&b.ID, &b.SourceFile, &b.Profile, &b.DetectedEncoding, &b.RowCount,
			&b.Accepted, &b.Duplicates, &b.Malformed, &started, &finished, &status, &errMsg); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, started); err == nil {
			b.StartedAt = t
		}
		if finished.Valid {
			if t, err := time.Parse(time.RFC3339, finished.String); err == nil {
				b.FinishedAt = t
			}
		}
		b.Status = model.BatchStatus(status)
		if errMsg.Valid {
			b.Error = errMsg.String
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
