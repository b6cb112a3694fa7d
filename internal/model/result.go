package model

import "time"

// ResultStatus is the lifecycle state of a fill result.
type ResultStatus string

const (
	ResultStatusPending ResultStatus = "pending"
	ResultStatusReady   ResultStatus = "ready"
	ResultStatusFailed  ResultStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s ResultStatus) Terminal() bool {
	return s == ResultStatusReady || s == ResultStatusFailed
}

// Result is the outcome record for a Submission. It shares the Submission's
// identifier; exactly one Result exists per Submission. A Result reaches a
// terminal state (ready or failed) at most once.
type Result struct {
	ID          string       `json:"id"`
	Status      ResultStatus `json:"status"`
	OutputPath  string       `json:"output_path,omitempty"`
	OutputSize  int64        `json:"output_size,omitempty"`
	FailReason  string       `json:"fail_reason,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
