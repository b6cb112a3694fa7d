package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"formfill/internal/fill"
	"formfill/internal/model"
	"formfill/internal/repository"
	"formfill/internal/repository/postgres"
	"formfill/internal/storage"
)

var (
	ErrResultPending    = errors.New("result is still pending")
	ErrProcessingFailed = errors.New("processing failed")
)

// ResultCache is the optional read-through cache for terminal results.
type ResultCache interface {
	Get(ctx context.Context, id string) (*model.Result, bool, error)
	Set(ctx context.Context, res *model.Result) error
}

// DeliveryService defines the use cases for inspecting and downloading
// finished fills.
type DeliveryService interface {
	// Status returns the result record for a submission.
	Status(ctx context.Context, id string) (*model.Result, error)

	// Fetch opens the filled workbook of a ready result for streaming.
	// Pending results report ErrResultPending, failed ones
	// ErrProcessingFailed; the result record is returned alongside either.
	Fetch(ctx context.Context, id string) (io.ReadCloser, *model.Result, error)
}

type deliveryService struct {
	store   storage.Storage
	results repository.ResultRepository
	cache   ResultCache
}

// NewDeliveryService constructs a DeliveryService. cache may be nil.
func NewDeliveryService(store storage.Storage, results repository.ResultRepository, cache ResultCache) DeliveryService {
	return &deliveryService{store: store, results: results, cache: cache}
}

func (s *deliveryService) Status(ctx context.Context, id string) (*model.Result, error) {
	if id == "" {
		return nil, ErrIDRequired
	}

	if s.cache != nil {
		if res, ok, err := s.cache.Get(ctx, id); err == nil && ok {
			return res, nil
		}
	}

	res, err := s.results.FindByID(ctx, id)
	if err != nil {
		if postgres.IsNoRowsError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find result: %w", err)
	}

	if s.cache != nil && res.Status.Terminal() {
		_ = s.cache.Set(ctx, res)
	}
	return res, nil
}

func (s *deliveryService) Fetch(ctx context.Context, id string) (io.ReadCloser, *model.Result, error) {
	res, err := s.Status(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	switch res.Status {
	case model.ResultStatusPending:
		return nil, res, ErrResultPending
	case model.ResultStatusFailed:
		return nil, res, ErrProcessingFailed
	}

	rc, _, err := s.store.Get(ctx, storage.AreaOutput, res.OutputPath)
	if err != nil {
		// A ready record always has its object; a miss here means the
		// storage backend lost it.
		return nil, res, fmt.Errorf("open output %s: %w", res.OutputPath, err)
	}
	return rc, res, nil
}

// OutputFilename is the name clients see on download.
func OutputFilename() string {
	return fill.OutputFilename
}
