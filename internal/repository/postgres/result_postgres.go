package postgres

import (
	"context"
	"database/sql"
	"time"

	"formfill/internal/model"
	"formfill/internal/repository"
)

// ResultPostgres is a PostgreSQL implementation of repository.ResultRepository.
// Terminal transitions are guarded in SQL (WHERE status = 'pending') so that
// no result can be completed twice, regardless of how many workers race.
type ResultPostgres struct {
	db *sql.DB
}

// NewResultPostgres creates a new ResultPostgres repository.
func NewResultPostgres(db *sql.DB) *ResultPostgres {
	return &ResultPostgres{db: db}
}

var _ repository.ResultRepository = (*ResultPostgres)(nil)

const resultColumns = `id, status, output_path, output_size, fail_reason, created_at, completed_at`

func scanResult(row interface{ Scan(...any) error }) (*model.Result, error) {
	var (
		res         model.Result
		outputPath  sql.NullString
		outputSize  sql.NullInt64
		failReason  sql.NullString
		completedAt sql.NullTime
	)
	if err := row.Scan(
		&res.ID,
		&res.Status,
		&outputPath,
		&outputSize,
		&failReason,
		&res.CreatedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}
	res.OutputPath = outputPath.String
	res.OutputSize = outputSize.Int64
	res.FailReason = failReason.String
	if completedAt.Valid {
		t := completedAt.Time
		res.CompletedAt = &t
	}
	return &res, nil
}

// Create inserts a new pending result row for the submission ID.
func (r *ResultPostgres) Create(ctx context.Context, id string) (*model.Result, error) {
	const q = `
		INSERT INTO results (id, status, created_at)
		VALUES ($1, 'pending', now())
		RETURNING ` + resultColumns
	return scanResult(r.db.QueryRowContext(ctx, q, id))
}

// FindByID fetches a single result by its ID.
func (r *ResultPostgres) FindByID(ctx context.Context, id string) (*model.Result, error) {
	const q = `
		SELECT ` + resultColumns + `
		FROM results
		WHERE id = $1
	`
	return scanResult(r.db.QueryRowContext(ctx, q, id))
}

// MarkReady flips a pending result to ready. The status guard in the WHERE
// clause makes the transition a compare-and-set.
func (r *ResultPostgres) MarkReady(ctx context.Context, id, outputPath string, outputSize int64, completedAt time.Time) error {
	const q = `
		UPDATE results
		SET status = 'ready', output_path = $2, output_size = $3, completed_at = $4
		WHERE id = $1 AND status = 'pending'
	`
	return r.execTransition(ctx, q, id, outputPath, outputSize, completedAt)
}

// MarkFailed flips a pending result to failed with a diagnostic reason.
func (r *ResultPostgres) MarkFailed(ctx context.Context, id, reason string, completedAt time.Time) error {
	const q = `
		UPDATE results
		SET status = 'failed', fail_reason = $2, completed_at = $3
		WHERE id = $1 AND status = 'pending'
	`
	return r.execTransition(ctx, q, id, reason, completedAt)
}

func (r *ResultPostgres) execTransition(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrAlreadyTerminal
	}
	return nil
}

// ListPending returns IDs of all pending results, oldest first.
func (r *ResultPostgres) ListPending(ctx context.Context) ([]string, error) {
	const q = `
		SELECT id
		FROM results
		WHERE status = 'pending'
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
