package mocks

import (
	"context"
	"time"

	"formfill/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) Create(ctx context.Context, id string) (*model.Result, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Result), args.Error(1)
}

func (m *MockResultRepository) FindByID(ctx context.Context, id string) (*model.Result, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Result), args.Error(1)
}

func (m *MockResultRepository) MarkReady(ctx context.Context, id, outputPath string, outputSize int64, completedAt time.Time) error {
	args := m.Called(ctx, id, outputPath, outputSize, completedAt)
	return args.Error(0)
}

func (m *MockResultRepository) MarkFailed(ctx context.Context, id, reason string, completedAt time.Time) error {
	args := m.Called(ctx, id, reason, completedAt)
	return args.Error(0)
}

func (m *MockResultRepository) ListPending(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
