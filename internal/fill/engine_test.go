package fill

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"formfill/internal/model"
	"formfill/internal/repository"
	repoMocks "formfill/internal/repository/mocks"
	"formfill/internal/storage"
	storeMocks "formfill/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func pendingSubmission(id string) *model.Submission {
	return &model.Submission{
		ID:            id,
		RateSheetPath: id + "/ratesheet.pdf",
		WorkbookPath:  id + "/workbook.xlsx",
	}
}

func TestEngine_Process_UnreadableRateSheetMarksFailed(t *testing.T) {
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	mSubs := new(repoMocks.MockSubmissionRepository)
	mResults := new(repoMocks.MockResultRepository)

	mSubs.On("FindByID", ctx, "id1").Return(pendingSubmission("id1"), nil)
	mStore.On("Get", ctx, storage.AreaUpload, "id1/ratesheet.pdf").
		Return(io.NopCloser(strings.NewReader("not a pdf")), storage.ObjectInfo{}, nil)
	mResults.On("MarkFailed", ctx, "id1", mock.MatchedBy(func(reason string) bool {
		return reason != ""
	}), mock.Anything).Return(nil)

	eng := NewEngine(mStore, mSubs, mResults, nil)
	err := eng.Process(ctx, "id1")

	assert.NoError(t, err)
	mStore.AssertExpectations(t)
	mResults.AssertExpectations(t)
}

func TestEngine_Process_SubmissionLookupError(t *testing.T) {
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	mSubs := new(repoMocks.MockSubmissionRepository)
	mResults := new(repoMocks.MockResultRepository)

	mSubs.On("FindByID", ctx, "id1").Return(nil, errors.New("db down"))

	eng := NewEngine(mStore, mSubs, mResults, nil)
	err := eng.Process(ctx, "id1")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "load submission")
	mResults.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_Process_MissingRateSheetMarksFailed(t *testing.T) {
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	mSubs := new(repoMocks.MockSubmissionRepository)
	mResults := new(repoMocks.MockResultRepository)

	mSubs.On("FindByID", ctx, "id1").Return(pendingSubmission("id1"), nil)
	mStore.On("Get", ctx, storage.AreaUpload, "id1/ratesheet.pdf").
		Return(nil, storage.ObjectInfo{}, storage.ErrNotFound)
	mResults.On("MarkFailed", ctx, "id1", mock.Anything, mock.Anything).Return(nil)

	eng := NewEngine(mStore, mSubs, mResults, nil)
	err := eng.Process(ctx, "id1")

	assert.NoError(t, err)
	mResults.AssertExpectations(t)
}

func TestEngine_Process_AlreadyTerminalIsSilent(t *testing.T) {
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	mSubs := new(repoMocks.MockSubmissionRepository)
	mResults := new(repoMocks.MockResultRepository)

	mSubs.On("FindByID", ctx, "id1").Return(pendingSubmission("id1"), nil)
	mStore.On("Get", ctx, storage.AreaUpload, "id1/ratesheet.pdf").
		Return(io.NopCloser(strings.NewReader("junk")), storage.ObjectInfo{}, nil)
	mResults.On("MarkFailed", ctx, "id1", mock.Anything, mock.Anything).
		Return(repository.ErrAlreadyTerminal)

	eng := NewEngine(mStore, mSubs, mResults, nil)
	err := eng.Process(ctx, "id1")

	assert.NoError(t, err)
}
