// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// JobStatus is the processing state Mathpix reports for a submitted PDF.
type JobStatus string

const (
	JobReceived  JobStatus = "received"
	JobLoaded    JobStatus = "loaded"
	JobSplit     JobStatus = "split"
	JobCompleted JobStatus = "completed"
	JobError     JobStatus = "error"

	// JobSubmitted is the local state between submission and the first poll.
	JobSubmitted JobStatus = "submitted"
)

// Terminal reports whether no further status change is expected.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobError
}

// ConversionStatus is the state of one output format conversion (md, docx, ...).
type ConversionStatus string

const (
	ConversionProcessing ConversionStatus = "processing"
	ConversionCompleted  ConversionStatus = "completed"
	ConversionError      ConversionStatus = "error"
)

// Progress is a single status observation of a remote job.
type Progress struct {
	PDFID             string    `json:"pdf_id" yaml:"pdf_id"`
	Status            JobStatus `json:"status" yaml:"status"`
	NumPages          int       `json:"num_pages" yaml:"num_pages"`
	NumPagesCompleted int       `json:"num_pages_completed" yaml:"num_pages_completed"`
	PercentDone       float64   `json:"percent_done" yaml:"percent_done"`

	// Conversion is the state of the requested output format, empty until
	// the PDF itself has completed.
	Conversion ConversionStatus `json:"conversion,omitempty" yaml:"conversion,omitempty"`

	// Error carries the remote error message when Status is JobError.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Job is a local ledger record of one ingestion run.
type Job struct {
	// ID is a locally generated UUID.
	ID string `json:"id" yaml:"id"`

	// PDFID is the remote job handle; empty if submission failed.
	PDFID string `json:"pdf_id" yaml:"pdf_id"`

	SourcePath string    `json:"source_path" yaml:"source_path"`
	OutputPath string    `json:"output_path" yaml:"output_path"`
	Status     JobStatus `json:"status" yaml:"status"`
	NumPages   int       `json:"num_pages" yaml:"num_pages"`

	PercentDone float64 `json:"percent_done" yaml:"percent_done"`

	SubmittedAt time.Time `json:"submitted_at" yaml:"submitted_at"`

	// CompletedAt is zero while the job is in flight.
	CompletedAt time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`

	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}
