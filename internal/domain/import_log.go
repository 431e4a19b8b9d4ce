package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportLogStage tags why an import log entry was written.
type ImportLogStage string

const (
	ImportLogStageValidation  ImportLogStage = "validation"
	ImportLogStagePersistence ImportLogStage = "persistence"
	ImportLogStageWarning     ImportLogStage = "warning"
	ImportLogStageHistory     ImportLogStage = "history"
)

// ImportLogEntry captures row level issues and history for an import run.
type ImportLogEntry struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID uuid.UUID      `json:"organization_id"`
	Catalog        string         `json:"catalog"`
	FileName       string         `json:"file_name"`
	RowNumber      *int           `json:"row_number,omitempty"`
	Stage          ImportLogStage `json:"stage"`
	Message        string         `json:"message"`
	CreatedAt      time.Time      `json:"created_at"`
}
