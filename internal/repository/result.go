package repository

import (
	"context"
	"errors"
	"time"

	"formfill/internal/model"
)

// ErrAlreadyTerminal is returned by MarkReady/MarkFailed when the result has
// already left the pending state. A result flips to a terminal state at most once.
var ErrAlreadyTerminal = errors.New("result already in terminal state")

// ResultRepository defines data access for fill results.
// A result row is created in 'pending' state together with its submission and
// is updated exactly once, to 'ready' or 'failed'.
type ResultRepository interface {
	// Create inserts a new pending result for the given submission ID.
	Create(ctx context.Context, id string) (*model.Result, error)

	// FindByID returns a result by its ID.
	FindByID(ctx context.Context, id string) (*model.Result, error)

	// MarkReady transitions a pending result to ready, recording the output
	// location. Returns ErrAlreadyTerminal if the result is not pending.
	MarkReady(ctx context.Context, id, outputPath string, outputSize int64, completedAt time.Time) error

	// MarkFailed transitions a pending result to failed with a diagnostic
	// reason. Returns ErrAlreadyTerminal if the result is not pending.
	MarkFailed(ctx context.Context, id, reason string, completedAt time.Time) error

	// ListPending returns the IDs of all results still in pending state,
	// oldest first. Used to requeue unfinished work after a restart.
	ListPending(ctx context.Context) ([]string, error)
}
