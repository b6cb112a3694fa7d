package postgres

import (
	"context"
	"database/sql"
	"errors"

	"formfill/internal/model"
	"formfill/internal/repository"
)

// SubmissionPostgres is a PostgreSQL implementation of repository.SubmissionRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type SubmissionPostgres struct {
	db *sql.DB
}

// NewSubmissionPostgres creates a new SubmissionPostgres repository.
func NewSubmissionPostgres(db *sql.DB) *SubmissionPostgres {
	return &SubmissionPostgres{db: db}
}

var _ repository.SubmissionRepository = (*SubmissionPostgres)(nil)

// IsNoRowsError reports whether err means the queried row does not exist.
func IsNoRowsError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

const submissionColumns = `id, rate_sheet_name, workbook_name, rate_sheet_path, workbook_path, rate_sheet_size, workbook_size, created_at`

func scanSubmission(row interface{ Scan(...any) error }) (*model.Submission, error) {
	var s model.Submission
	if err := row.Scan(
		&s.ID,
		&s.RateSheetName,
		&s.WorkbookName,
		&s.RateSheetPath,
		&s.WorkbookPath,
		&s.RateSheetSize,
		&s.WorkbookSize,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new submission row and returns the stored record.
func (r *SubmissionPostgres) Create(ctx context.Context, sub *model.Submission) (*model.Submission, error) {
	const q = `
		INSERT INTO submissions (id, rate_sheet_name, workbook_name, rate_sheet_path, workbook_path, rate_sheet_size, workbook_size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + submissionColumns
	row := r.db.QueryRowContext(ctx, q,
		sub.ID,
		sub.RateSheetName,
		sub.WorkbookName,
		sub.RateSheetPath,
		sub.WorkbookPath,
		sub.RateSheetSize,
		sub.WorkbookSize,
		sub.CreatedAt,
	)
	return scanSubmission(row)
}

// FindByID fetches a single submission by its ID.
func (r *SubmissionPostgres) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	const q = `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE id = $1
	`
	return scanSubmission(r.db.QueryRowContext(ctx, q, id))
}

// List returns submissions using LIMIT/OFFSET pagination and a total count.
func (r *SubmissionPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Submission], error) {
	const qCount = `SELECT COUNT(*) FROM submissions`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + submissionColumns + `
		FROM submissions
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Submission, 0)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Submission]{
		Items: items,
		Total: total,
	}, nil
}
