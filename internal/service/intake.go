package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"formfill/internal/model"
	"formfill/internal/repository"
	"formfill/internal/storage"
)

var (
	ErrIDRequired      = errors.New("id is required")
	ErrNotFound        = errors.New("result not found")
	ErrReaderNil       = errors.New("reader is nil")
	ErrEmptyPayload    = errors.New("payload is empty")
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")
	ErrBadFileType     = errors.New("unsupported file type")
)

// UploadFile is one file of an incoming submission.
type UploadFile struct {
	Reader   io.Reader
	Filename string
	Size     int64
}

// SubmissionListResult is the service-level DTO for paginated submissions.
type SubmissionListResult struct {
	Items []model.Submission `json:"data"`
	Total int                `json:"total"`
}

// Queue hands accepted submissions to the fill worker pool.
type Queue interface {
	Enqueue(ctx context.Context, submissionID string) error
}

// IntakeService defines the use cases for accepting submissions.
type IntakeService interface {
	// Submit validates and persists a rate-sheet/workbook pair under a fresh
	// identifier, records the submission with a pending result, and enqueues
	// the fill. Either everything is persisted and the submission returned,
	// or nothing observable remains and an error is reported.
	Submit(ctx context.Context, rateSheet, workbook UploadFile) (*model.Submission, error)

	// List returns submissions using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*SubmissionListResult, error)
}

type intakeService struct {
	store    storage.Storage
	subs     repository.SubmissionRepository
	results  repository.ResultRepository
	queue    Queue
	maxBytes int64
}

// NewIntakeService constructs an IntakeService enforcing the given maximum
// payload size per file.
func NewIntakeService(store storage.Storage, subs repository.SubmissionRepository, results repository.ResultRepository, queue Queue, maxBytes int64) IntakeService {
	return &intakeService{
		store:    store,
		subs:     subs,
		results:  results,
		queue:    queue,
		maxBytes: maxBytes,
	}
}

var rateSheetExts = map[string]bool{".pdf": true}
var workbookExts = map[string]bool{".xlsx": true, ".xls": true}

func (s *intakeService) validate(f UploadFile, allowed map[string]bool) error {
	if f.Reader == nil {
		return ErrReaderNil
	}
	if f.Size <= 0 {
		return ErrEmptyPayload
	}
	if s.maxBytes > 0 && f.Size > s.maxBytes {
		return ErrPayloadTooLarge
	}
	ext := strings.ToLower(filepath.Ext(f.Filename))
	if !allowed[ext] {
		return fmt.Errorf("%w: %s", ErrBadFileType, f.Filename)
	}
	return nil
}

func (s *intakeService) Submit(ctx context.Context, rateSheet, workbook UploadFile) (*model.Submission, error) {
	if err := s.validate(rateSheet, rateSheetExts); err != nil {
		return nil, err
	}
	if err := s.validate(workbook, workbookExts); err != nil {
		return nil, err
	}

	// A key collision means the generated identifier already exists, which is
	// an internal defect: substitute a fresh identifier and retry once.
	sub, err := s.storePair(ctx, rateSheet, workbook)
	if errors.Is(err, storage.ErrExists) {
		if rerr := rewind(rateSheet.Reader, workbook.Reader); rerr != nil {
			return nil, fmt.Errorf("identifier collision, cannot retry: %w", rerr)
		}
		sub, err = s.storePair(ctx, rateSheet, workbook)
	}
	if err != nil {
		return nil, err
	}

	stored, err := s.subs.Create(ctx, sub)
	if err != nil {
		s.discard(ctx, sub)
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	if _, err := s.results.Create(ctx, stored.ID); err != nil {
		s.discard(ctx, sub)
		return nil, fmt.Errorf("create result record: %w", err)
	}

	if err := s.queue.Enqueue(ctx, stored.ID); err != nil {
		// The pending result is requeued at the next startup; the submission
		// itself is intact, so report the accepted record anyway.
		return stored, nil
	}
	return stored, nil
}

// storePair writes both files of the pair under one fresh identifier.
// On any failure nothing remains under the identifier.
func (s *intakeService) storePair(ctx context.Context, rateSheet, workbook UploadFile) (*model.Submission, error) {
	id := uuid.NewString()
	rsKey := id + "/ratesheet" + strings.ToLower(filepath.Ext(rateSheet.Filename))
	wbKey := id + "/workbook" + strings.ToLower(filepath.Ext(workbook.Filename))

	rsInfo, err := s.store.Put(ctx, storage.AreaUpload, rsKey, rateSheet.Reader, storage.PutOptions{
		Size:        rateSheet.Size,
		ContentType: "application/pdf",
	})
	if err != nil {
		return nil, fmt.Errorf("store rate sheet: %w", err)
	}

	wbInfo, err := s.store.Put(ctx, storage.AreaUpload, wbKey, workbook.Reader, storage.PutOptions{
		Size:        workbook.Size,
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	})
	if err != nil {
		_ = s.store.Delete(ctx, storage.AreaUpload, rsKey)
		return nil, fmt.Errorf("store workbook: %w", err)
	}

	return &model.Submission{
		ID:            id,
		RateSheetName: rateSheet.Filename,
		WorkbookName:  workbook.Filename,
		RateSheetPath: rsKey,
		WorkbookPath:  wbKey,
		RateSheetSize: rsInfo.Size,
		WorkbookSize:  wbInfo.Size,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func (s *intakeService) discard(ctx context.Context, sub *model.Submission) {
	_ = s.store.Delete(ctx, storage.AreaUpload, sub.RateSheetPath)
	_ = s.store.Delete(ctx, storage.AreaUpload, sub.WorkbookPath)
}

// rewind seeks both payload readers back to the start for a retry.
func rewind(readers ...io.Reader) error {
	for _, r := range readers {
		seeker, ok := r.(io.Seeker)
		if !ok {
			return errors.New("payload reader is not seekable")
		}
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return err
		}
	}
	return nil
}

// List returns paginated submissions without exposing repository types.
func (s *intakeService) List(ctx context.Context, limit, offset int) (*SubmissionListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.subs.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &SubmissionListResult{Items: res.Items, Total: res.Total}, nil
}
