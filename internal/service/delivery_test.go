package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"formfill/internal/model"
	repoMocks "formfill/internal/repository/mocks"
	"formfill/internal/storage"
	storeMocks "formfill/internal/storage/mocks"
)

type mockResultCache struct {
	mock.Mock
}

func (m *mockResultCache) Get(ctx context.Context, id string) (*model.Result, bool, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*model.Result)
	return res, args.Bool(1), args.Error(2)
}

func (m *mockResultCache) Set(ctx context.Context, res *model.Result) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

func readyResult(id string) *model.Result {
	now := time.Now().UTC()
	return &model.Result{
		ID:          id,
		Status:      model.ResultStatusReady,
		OutputPath:  id + "/filled_brokerage.xlsx",
		OutputSize:  128,
		CompletedAt: &now,
	}
}

func TestDeliveryService_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("empty id", func(t *testing.T) {
		svc := NewDeliveryService(nil, nil, nil)
		_, err := svc.Status(ctx, "")
		assert.ErrorIs(t, err, ErrIDRequired)
	})

	t.Run("found without cache", func(t *testing.T) {
		mResults := new(repoMocks.MockResultRepository)
		mResults.On("FindByID", ctx, "id1").
			Return(&model.Result{ID: "id1", Status: model.ResultStatusPending}, nil)

		svc := NewDeliveryService(nil, mResults, nil)
		res, err := svc.Status(ctx, "id1")

		require.NoError(t, err)
		assert.Equal(t, model.ResultStatusPending, res.Status)
	})

	t.Run("not found", func(t *testing.T) {
		mResults := new(repoMocks.MockResultRepository)
		mResults.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)

		svc := NewDeliveryService(nil, mResults, nil)
		_, err := svc.Status(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("cache hit skips repository", func(t *testing.T) {
		mResults := new(repoMocks.MockResultRepository)
		mCache := new(mockResultCache)
		mCache.On("Get", ctx, "id1").Return(readyResult("id1"), true, nil)

		svc := NewDeliveryService(nil, mResults, mCache)
		res, err := svc.Status(ctx, "id1")

		require.NoError(t, err)
		assert.Equal(t, model.ResultStatusReady, res.Status)
		mResults.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("terminal result is cached", func(t *testing.T) {
		mResults := new(repoMocks.MockResultRepository)
		mCache := new(mockResultCache)
		ready := readyResult("id1")
		mCache.On("Get", ctx, "id1").Return(nil, false, nil)
		mResults.On("FindByID", ctx, "id1").Return(ready, nil)
		mCache.On("Set", ctx, ready).Return(nil)

		svc := NewDeliveryService(nil, mResults, mCache)
		_, err := svc.Status(ctx, "id1")

		require.NoError(t, err)
		mCache.AssertExpectations(t)
	})

	t.Run("pending result is not cached", func(t *testing.T) {
		mResults := new(repoMocks.MockResultRepository)
		mCache := new(mockResultCache)
		mCache.On("Get", ctx, "id1").Return(nil, false, nil)
		mResults.On("FindByID", ctx, "id1").
			Return(&model.Result{ID: "id1", Status: model.ResultStatusPending}, nil)

		svc := NewDeliveryService(nil, mResults, mCache)
		_, err := svc.Status(ctx, "id1")

		require.NoError(t, err)
		mCache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
	})

	t.Run("cache error falls through to repository", func(t *testing.T) {
		mResults := new(repoMocks.MockResultRepository)
		mCache := new(mockResultCache)
		mCache.On("Get", ctx, "id1").Return(nil, false, errors.New("redis down"))
		mResults.On("FindByID", ctx, "id1").
			Return(&model.Result{ID: "id1", Status: model.ResultStatusPending}, nil)

		svc := NewDeliveryService(nil, mResults, mCache)
		res, err := svc.Status(ctx, "id1")

		require.NoError(t, err)
		assert.Equal(t, "id1", res.ID)
	})
}

func TestDeliveryService_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("pending", func(t *testing.T) {
		mResults := new(repoMocks.MockResultRepository)
		mResults.On("FindByID", ctx, "id1").
			Return(&model.Result{ID: "id1", Status: model.ResultStatusPending}, nil)

		svc := NewDeliveryService(nil, mResults, nil)
		rc, res, err := svc.Fetch(ctx, "id1")

		assert.Nil(t, rc)
		require.NotNil(t, res)
		assert.ErrorIs(t, err, ErrResultPending)
	})

	t.Run("failed", func(t *testing.T) {
		mResults := new(repoMocks.MockResultRepository)
		mResults.On("FindByID", ctx, "id1").
			Return(&model.Result{ID: "id1", Status: model.ResultStatusFailed, FailReason: "unreadable"}, nil)

		svc := NewDeliveryService(nil, mResults, nil)
		rc, res, err := svc.Fetch(ctx, "id1")

		assert.Nil(t, rc)
		require.NotNil(t, res)
		assert.ErrorIs(t, err, ErrProcessingFailed)
		assert.Equal(t, "unreadable", res.FailReason)
	})

	t.Run("ready streams output", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mResults := new(repoMocks.MockResultRepository)
		ready := readyResult("id1")
		mResults.On("FindByID", ctx, "id1").Return(ready, nil)
		mStore.On("Get", ctx, storage.AreaOutput, ready.OutputPath).
			Return(io.NopCloser(strings.NewReader("workbook-bytes")), storage.ObjectInfo{Size: 14}, nil)

		svc := NewDeliveryService(mStore, mResults, nil)
		rc, res, err := svc.Fetch(ctx, "id1")

		require.NoError(t, err)
		require.NotNil(t, res)
		body, rerr := io.ReadAll(rc)
		require.NoError(t, rerr)
		require.NoError(t, rc.Close())
		assert.Equal(t, "workbook-bytes", string(body))
	})

	t.Run("ready but output missing", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mResults := new(repoMocks.MockResultRepository)
		ready := readyResult("id1")
		mResults.On("FindByID", ctx, "id1").Return(ready, nil)
		mStore.On("Get", ctx, storage.AreaOutput, ready.OutputPath).
			Return(nil, storage.ObjectInfo{}, storage.ErrNotFound)

		svc := NewDeliveryService(mStore, mResults, nil)
		rc, _, err := svc.Fetch(ctx, "id1")

		assert.Nil(t, rc)
		assert.ErrorContains(t, err, "open output")
	})

	t.Run("not found", func(t *testing.T) {
		mResults := new(repoMocks.MockResultRepository)
		mResults.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)

		svc := NewDeliveryService(nil, mResults, nil)
		_, _, err := svc.Fetch(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
