package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"formfill/internal/model"
)

type MockDeliveryService struct {
	mock.Mock
}

func (m *MockDeliveryService) Status(ctx context.Context, id string) (*model.Result, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Result), args.Error(1)
}

func (m *MockDeliveryService) Fetch(ctx context.Context, id string) (io.ReadCloser, *model.Result, error) {
	args := m.Called(ctx, id)
	rc, _ := args.Get(0).(io.ReadCloser)
	res, _ := args.Get(1).(*model.Result)
	return rc, res, args.Error(2)
}
