package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"formfill/internal/model"
	"formfill/internal/service"
)

type MockIntakeService struct {
	mock.Mock
}

func (m *MockIntakeService) Submit(ctx context.Context, rateSheet, workbook service.UploadFile) (*model.Submission, error) {
	args := m.Called(ctx, rateSheet, workbook)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Submission), args.Error(1)
}

func (m *MockIntakeService) List(ctx context.Context, limit, offset int) (*service.SubmissionListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmissionListResult), args.Error(1)
}
