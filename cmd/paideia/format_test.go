// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paideia/paideia/pkg/types"
)

func TestFormatJobs(t *testing.T) {
	jobs := []types.Job{{
		ID:          "0b7c5f0e-6c1e-4d0a-9d2b-6c1f8f2f7a11",
		PDFID:       "2026_03_14_abcdef0123456789abcdef",
		SourcePath:  "pdfs/algebra-trig.pdf",
		Status:      types.JobError,
		NumPages:    42,
		SubmittedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Error:       "PDF is encrypted",
	}}

	var buf bytes.Buffer
	require.NoError(t, formatJobs(&buf, jobs, false))
	out := buf.String()
	assert.Contains(t, out, "0b7c5f0e-6c1e-4d0a-9d2b-6c1f8f2f7a11")
	assert.Contains(t, out, "2026_03_14_abcdef0123...")
	assert.Contains(t, out, "2026-03-14 09:26:53")
	assert.Contains(t, out, "error: PDF is encrypted")
	assert.Contains(t, out, "1 jobs")
}

func TestFormatJobs_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatJobs(&buf, nil, false))
	assert.Equal(t, "No jobs recorded.\n", buf.String())

	buf.Reset()
	require.NoError(t, formatJobs(&buf, nil, true))
	assert.JSONEq(t, "[]", buf.String())
}

func TestFormatStatus(t *testing.T) {
	r := jobReport{
		Progress: types.Progress{
			PDFID:             "abc",
			Status:            types.JobCompleted,
			NumPages:          10,
			NumPagesCompleted: 10,
			PercentDone:       100,
		},
		Conversions: map[string]types.ConversionStatus{
			"md":   types.ConversionCompleted,
			"docx": types.ConversionProcessing,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, formatStatus(&buf, r, false))
	out := buf.String()
	assert.Contains(t, out, "Status:   completed")
	assert.Contains(t, out, "Pages:    10/10")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Format docx")), bytes.Index(buf.Bytes(), []byte("Format md")))

	buf.Reset()
	require.NoError(t, formatStatus(&buf, r, true))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "abc", decoded["pdf_id"])
	assert.Equal(t, map[string]any{"md": "completed", "docx": "processing"}, decoded["conversions"])
}

func TestProgressLine(t *testing.T) {
	tests := []struct {
		name string
		p    types.Progress
		want string
	}{
		{"received", types.Progress{Status: types.JobReceived}, "received"},
		{"split with pages", types.Progress{Status: types.JobSplit, NumPages: 8, NumPagesCompleted: 3, PercentDone: 37.5}, "split 3/8 pages (38%)"},
		{"converting", types.Progress{Status: types.JobCompleted, NumPages: 8, NumPagesCompleted: 8, PercentDone: 100, Conversion: types.ConversionProcessing}, "completed 8/8 pages (100%), markdown processing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, progressLine(tt.p))
		})
	}
}

func TestFinished(t *testing.T) {
	tests := []struct {
		p    types.Progress
		want bool
	}{
		{types.Progress{Status: types.JobLoaded}, false},
		{types.Progress{Status: types.JobError}, true},
		{types.Progress{Status: types.JobCompleted}, false},
		{types.Progress{Status: types.JobCompleted, Conversion: types.ConversionProcessing}, false},
		{types.Progress{Status: types.JobCompleted, Conversion: types.ConversionCompleted}, true},
		{types.Progress{Status: types.JobCompleted, Conversion: types.ConversionError}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, finished(tt.p), "%+v", tt.p)
	}
}
