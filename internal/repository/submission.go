package repository

import (
	"context"

	"formfill/internal/model"
)

// SubmissionRepository defines data access for submissions using SQL queries only.
// No business logic here, strictly persistence operations.
type SubmissionRepository interface {
	// Create inserts a new submission record. Submissions are never updated;
	// they exist from intake until an out-of-scope retention policy removes them.
	Create(ctx context.Context, sub *model.Submission) (*model.Submission, error)

	// FindByID returns a submission by its ID.
	FindByID(ctx context.Context, id string) (*model.Submission, error)

	// List returns a paginated list of submissions and total rows count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Submission], error)
}
