package mocks

import (
	"context"
	"io"

	"formfill/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Put(ctx context.Context, area storage.Area, key string, r io.Reader, opt storage.PutOptions) (storage.ObjectInfo, error) {
	args := m.Called(ctx, area, key, r, opt)
	if f, ok := args.Get(0).(func(context.Context, storage.Area, string, io.Reader, storage.PutOptions) storage.ObjectInfo); ok {
		return f(ctx, area, key, r, opt), args.Error(1)
	}
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

func (m *MockStorage) Get(ctx context.Context, area storage.Area, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, area, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockStorage) Delete(ctx context.Context, area storage.Area, key string) error {
	args := m.Called(ctx, area, key)
	return args.Error(0)
}
