package fill

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"formfill/internal/repository"
	"formfill/internal/storage"
)

// Engine consumes a submission identifier and produces its Result: ready
// with a filled workbook in the output area, or failed with a diagnostic.
// Either way the result reaches a terminal state exactly once.
type Engine interface {
	Process(ctx context.Context, submissionID string) error
}

type engine struct {
	store     storage.Storage
	subs      repository.SubmissionRepository
	results   repository.ResultRepository
	passwords []string
	logOut    io.Writer
}

// NewEngine constructs the fill engine. passwords are tried in order when the
// rate sheet is encrypted.
func NewEngine(store storage.Storage, subs repository.SubmissionRepository, results repository.ResultRepository, passwords []string) Engine {
	return &engine{
		store:     store,
		subs:      subs,
		results:   results,
		passwords: passwords,
		logOut:    os.Stdout,
	}
}

// OutputFilename is the name of every filled workbook.
const OutputFilename = "filled_brokerage.xlsx"

// OutputKey addresses a submission's filled workbook inside the output area.
func OutputKey(submissionID string) string {
	return submissionID + "/" + OutputFilename
}

// Process runs the fill for one submission. Domain failures (unreadable
// sheet, no extractable rates) mark the result failed and return nil;
// a non-nil error means infrastructure prevented reaching a terminal state.
func (e *engine) Process(ctx context.Context, submissionID string) error {
	start := time.Now()

	sub, err := e.subs.FindByID(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("load submission %s: %w", submissionID, err)
	}

	table, ferr := e.extract(ctx, sub.RateSheetPath)
	if ferr == nil && len(table) == 0 {
		ferr = errors.New("no scheme rates found in rate sheet")
	}

	var output []byte
	if ferr == nil {
		output, ferr = e.fillFromStorage(ctx, sub.WorkbookPath, table)
	}

	if ferr != nil {
		if err := e.results.MarkFailed(ctx, submissionID, ferr.Error(), time.Now().UTC()); err != nil {
			if errors.Is(err, repository.ErrAlreadyTerminal) {
				return nil
			}
			return fmt.Errorf("mark failed %s: %w", submissionID, err)
		}
		e.logEvent("fill_failed", submissionID, time.Since(start), ferr)
		return nil
	}

	key := OutputKey(submissionID)
	info, err := e.store.Put(ctx, storage.AreaOutput, key, bytes.NewReader(output), storage.PutOptions{
		Size:        int64(len(output)),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	})
	if err != nil {
		if errors.Is(err, storage.ErrExists) {
			// A previous run already produced this output but may have died
			// before recording it; adopt the stored object if still pending.
			rc, existing, gerr := e.store.Get(ctx, storage.AreaOutput, key)
			if gerr != nil {
				return fmt.Errorf("adopt output %s: %w", submissionID, gerr)
			}
			rc.Close()
			if err := e.results.MarkReady(ctx, submissionID, key, existing.Size, time.Now().UTC()); err != nil && !errors.Is(err, repository.ErrAlreadyTerminal) {
				return fmt.Errorf("mark ready %s: %w", submissionID, err)
			}
			return nil
		}
		return fmt.Errorf("store output %s: %w", submissionID, err)
	}

	if err := e.results.MarkReady(ctx, submissionID, key, info.Size, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrAlreadyTerminal) {
			_ = e.store.Delete(ctx, storage.AreaOutput, key)
			return nil
		}
		return fmt.Errorf("mark ready %s: %w", submissionID, err)
	}

	e.logEvent("fill_ready", submissionID, time.Since(start), nil)
	return nil
}

func (e *engine) extract(ctx context.Context, rateSheetKey string) (RateTable, error) {
	rc, _, err := e.store.Get(ctx, storage.AreaUpload, rateSheetKey)
	if err != nil {
		return nil, fmt.Errorf("read rate sheet: %w", err)
	}
	defer rc.Close()
	return ExtractRateTable(rc, e.passwords)
}

func (e *engine) fillFromStorage(ctx context.Context, workbookKey string, table RateTable) ([]byte, error) {
	rc, _, err := e.store.Get(ctx, storage.AreaUpload, workbookKey)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	defer rc.Close()
	return FillWorkbook(rc, table)
}

func (e *engine) logEvent(event, submissionID string, elapsed time.Duration, ferr error) {
	entry := map[string]any{
		"ts":            time.Now().UTC().Format(time.RFC3339Nano),
		"level":         "info",
		"component":     "fill_engine",
		"event":         event,
		"submission_id": submissionID,
		"duration_ms":   elapsed.Milliseconds(),
	}
	if ferr != nil {
		entry["level"] = "warn"
		entry["reason"] = ferr.Error()
	}
	if b, err := json.Marshal(entry); err == nil {
		fmt.Fprintln(e.logOut, string(b))
	} else {
		log.Printf("failed to marshal fill log: %v", err)
	}
}
