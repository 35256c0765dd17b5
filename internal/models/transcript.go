package models

import "time"

// TranscriptFormat enumerates supported export formats.
type TranscriptFormat string

const (
	TranscriptFormatCSV  TranscriptFormat = "csv"
	TranscriptFormatPDF  TranscriptFormat = "pdf"
	TranscriptFormatXLSX TranscriptFormat = "xlsx"
)

// Valid reports whether f is a supported format.
func (f TranscriptFormat) Valid() bool {
	switch f {
	case TranscriptFormatCSV, TranscriptFormatPDF, TranscriptFormatXLSX:
		return true
	}
	return false
}

// TranscriptStatus captures background job lifecycle states.
type TranscriptStatus string

const (
	TranscriptStatusQueued    TranscriptStatus = "QUEUED"
	TranscriptStatusRunning   TranscriptStatus = "RUNNING"
	TranscriptStatusCompleted TranscriptStatus = "COMPLETED"
	TranscriptStatusFailed    TranscriptStatus = "FAILED"
)

// TranscriptJob is the record of an asynchronous transcript export.
type TranscriptJob struct {
	ID            string           `json:"id"`
	StudentID     int64            `json:"student_id"`
	Level         Level            `json:"level"`
	Format        TranscriptFormat `json:"format"`
	Status        TranscriptStatus `json:"status"`
	ResultPath    string           `json:"-"`
	DownloadToken string           `json:"download_token,omitempty"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
	Error         string           `json:"error,omitempty"`
	RequestedBy   int64            `json:"requested_by"`
	CreatedAt     time.Time        `json:"created_at"`
	FinishedAt    *time.Time       `json:"finished_at,omitempty"`
}

// TranscriptRequest selects what to export.
type TranscriptRequest struct {
	Level  Level            `json:"level" validate:"required"`
	Format TranscriptFormat `json:"format" validate:"required,oneof=csv pdf xlsx"`
}
