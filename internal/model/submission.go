package model

import "time"

// Submission represents one uploaded rate-sheet/workbook pair awaiting or
// having completed a fill. It is a pure domain model with no database-specific
// dependencies or tags, usable across layers (HTTP, service, storage).
type Submission struct {
	ID            string    `json:"id"`
	RateSheetName string    `json:"rate_sheet_name"`
	WorkbookName  string    `json:"workbook_name"`
	RateSheetPath string    `json:"rate_sheet_path"`
	WorkbookPath  string    `json:"workbook_path"`
	RateSheetSize int64     `json:"rate_sheet_size"`
	WorkbookSize  int64     `json:"workbook_size"`
	CreatedAt     time.Time `json:"created_at"`
}
