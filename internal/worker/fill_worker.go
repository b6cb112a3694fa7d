package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"formfill/internal/fill"
	"formfill/internal/repository"
)

// FillWorker runs the fill engine over submitted jobs with a fixed pool of
// goroutines. Jobs are identifiers; the engine owns all result transitions.
// Pending results found in the repository at startup are requeued, so work
// survives process restarts.
type FillWorker struct {
	engine  fill.Engine
	results repository.ResultRepository
	jobs    chan string
	workers int
	logOut  io.Writer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFillWorker constructs a worker pool. workers and queueSize fall back to
// sane minimums when non-positive.
func NewFillWorker(engine fill.Engine, results repository.ResultRepository, workers, queueSize int) *FillWorker {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	return &FillWorker{
		engine:  engine,
		results: results,
		jobs:    make(chan string, queueSize),
		workers: workers,
		logOut:  os.Stdout,
	}
}

// Start requeues pending results and launches the pool. Calling Start twice
// is a no-op.
func (w *FillWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	pending, err := w.results.ListPending(workerCtx)
	if err != nil {
		cancel()
		w.cancel = nil
		return fmt.Errorf("list pending results: %w", err)
	}
	for _, id := range pending {
		select {
		case w.jobs <- id:
		default:
			// A full queue at boot means more backlog than capacity; the
			// remainder is picked up on the next restart.
			w.logEvent("requeue_overflow", id, nil)
		}
	}
	if len(pending) > 0 {
		w.logEvent("requeued_pending", "", map[string]any{"count": len(pending)})
	}

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(workerCtx)
	}
	return nil
}

// Enqueue hands a submission to the pool, blocking until there is queue
// space or the context is done. A context error leaves the result pending;
// it is requeued on the next start.
func (w *FillWorker) Enqueue(ctx context.Context, submissionID string) error {
	select {
	case w.jobs <- submissionID:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue %s: %w", submissionID, ctx.Err())
	}
}

// Stop cancels the pool and waits for in-flight jobs to finish.
func (w *FillWorker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	w.wg.Wait()
	w.cancel = nil
}

func (w *FillWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-w.jobs:
			if err := w.engine.Process(ctx, id); err != nil {
				w.logEvent("process_error", id, map[string]any{"error": err.Error()})
			}
		}
	}
}

func (w *FillWorker) logEvent(event, submissionID string, extra map[string]any) {
	entry := map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     "info",
		"component": "fill_worker",
		"event":     event,
	}
	if submissionID != "" {
		entry["submission_id"] = submissionID
	}
	for k, v := range extra {
		entry[k] = v
	}
	if event == "process_error" || event == "requeue_overflow" {
		entry["level"] = "error"
	}
	if b, err := json.Marshal(entry); err == nil {
		fmt.Fprintln(w.logOut, string(b))
	} else {
		log.Printf("failed to marshal worker log: %v", err)
	}
}
