// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paideia/paideia/internal/mathpix"
	"github.com/paideia/paideia/pkg/types"
)

var validCreds = types.Credentials{AppID: "app", AppKey: "key"}

// fakeService implements Service for testing. It returns canned results
// and counts calls.
type fakeService struct {
	pdfID     string
	text      string
	submitErr error
	waitErr   error
	mdErr     error
	progress  []types.Progress

	// blockWait makes WaitUntilComplete wait for ctx to end.
	blockWait bool
	// onMarkdown runs before Markdown returns.
	onMarkdown func()

	submits   int
	waits     int
	markdowns int
	lastOpts  mathpix.SubmitOptions
}

func (f *fakeService) Submit(_ context.Context, _ string, opts mathpix.SubmitOptions) (string, error) {
	f.submits++
	f.lastOpts = opts
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.pdfID, nil
}

func (f *fakeService) WaitUntilComplete(ctx context.Context, _ string, _ time.Duration, progress mathpix.ProgressFunc) error {
	f.waits++
	for _, p := range f.progress {
		progress(p)
	}
	if f.blockWait {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.waitErr
}

func (f *fakeService) Markdown(context.Context, string) (string, error) {
	f.markdowns++
	if f.onMarkdown != nil {
		f.onMarkdown()
	}
	if f.mdErr != nil {
		return "", f.mdErr
	}
	return f.text, nil
}

// countingFactory hands out svc and counts how many clients were built.
type countingFactory struct {
	svc   Service
	calls int
	creds types.Credentials
}

func (c *countingFactory) build(creds types.Credentials, _ types.MathpixConfig) Service {
	c.calls++
	c.creds = creds
	return c.svc
}

// memRecorder keeps every saved job in order.
type memRecorder struct {
	saved []types.Job
	err   error
}

func (m *memRecorder) Save(_ context.Context, job types.Job) error {
	m.saved = append(m.saved, job)
	return m.err
}

func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "algebra-trig.pdf")
	require.NoError(t, os.WriteFile(path, []byte("fake pdf"), 0o644))
	return path
}

func newIngester(creds types.Credentials, f *countingFactory, log *bytes.Buffer) *Ingester {
	return New(Options{
		Credentials: creds,
		Mathpix:     types.MathpixConfig{PollInterval: time.Millisecond},
		Factory:     f.build,
		Logger:      zerolog.New(log),
	})
}

func TestIngest_MissingCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds types.Credentials
	}{
		{"both missing", types.Credentials{}},
		{"app id missing", types.Credentials{AppKey: "key"}},
		{"app key missing", types.Credentials{AppID: "app"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &countingFactory{svc: &fakeService{pdfID: "x", text: "never"}}
			var log bytes.Buffer

			_, err := newIngester(tt.creds, f, &log).Ingest(context.Background(), writePDF(t))

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.ErrorIs(t, err, types.ErrMissingCredentials)
			assert.Equal(t, 0, f.calls, "no client may be built without credentials")
		})
	}
}

func TestIngest_MissingCredentialsMakesNoRequest(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer ts.Close()

	ing := New(Options{
		Mathpix: types.MathpixConfig{BaseURL: ts.URL},
		Logger:  zerolog.Nop(),
	})

	_, err := ing.Ingest(context.Background(), writePDF(t))
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestIngest_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		want string
	}{
		{
			name: "empty path",
			path: func(*testing.T) string { return "" },
			want: "PDF file path is required",
		},
		{
			name: "nonexistent file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.pdf") },
			want: "no such file",
		},
		{
			name: "directory",
			path: func(t *testing.T) string { return t.TempDir() },
			want: "not a regular file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &countingFactory{svc: &fakeService{pdfID: "x"}}
			var log bytes.Buffer

			_, err := newIngester(validCreds, f, &log).Ingest(context.Background(), tt.path(t))

			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, 0, f.calls)
		})
	}
}

func TestIngest_ReturnsTextUnchanged(t *testing.T) {
	svc := &fakeService{pdfID: "pdf-1", text: "Result X"}
	f := &countingFactory{svc: svc}
	var log bytes.Buffer

	text, err := newIngester(validCreds, f, &log).Ingest(context.Background(), writePDF(t))

	require.NoError(t, err)
	assert.Equal(t, "Result X", text)
	assert.Equal(t, validCreds, f.creds)
	assert.Equal(t, 1, svc.submits)
	assert.Equal(t, 1, svc.waits)
	assert.Equal(t, 1, svc.markdowns)

	out := log.String()
	for _, msg := range []string{
		"PDF job submitted",
		"waiting for PDF processing to complete",
		"PDF processing completed",
		"markdown retrieval completed",
	} {
		assert.Contains(t, out, msg)
	}
	assert.Contains(t, out, `"pdf_id":"pdf-1"`)
	assert.NotContains(t, out, validCreds.AppKey)
}

func TestIngest_PassesPageRanges(t *testing.T) {
	svc := &fakeService{pdfID: "pdf-1", text: "x"}
	f := &countingFactory{svc: svc}

	ing := New(Options{Credentials: validCreds, PageRanges: "2-4", Factory: f.build, Logger: zerolog.Nop()})
	_, err := ing.Ingest(context.Background(), writePDF(t))

	require.NoError(t, err)
	assert.Equal(t, mathpix.SubmitOptions{PageRanges: "2-4"}, svc.lastOpts)
}

func TestIngest_RemoteErrorsPassThrough(t *testing.T) {
	apiErr := &mathpix.APIError{StatusCode: http.StatusUnauthorized, ID: "http_unauthorized", Message: "Invalid credentials"}

	tests := []struct {
		name          string
		svc           *fakeService
		wantErr       error
		wantMarkdowns int
	}{
		{"submit fails", &fakeService{submitErr: apiErr}, apiErr, 0},
		{"wait fails", &fakeService{pdfID: "p", waitErr: mathpix.ErrJobFailed}, mathpix.ErrJobFailed, 0},
		{"markdown fails", &fakeService{pdfID: "p", mdErr: apiErr}, apiErr, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &countingFactory{svc: tt.svc}
			var log bytes.Buffer

			_, err := newIngester(validCreds, f, &log).Ingest(context.Background(), writePDF(t))

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 1, tt.svc.submits, "no retry at the ingestion level")
			assert.Equal(t, tt.wantMarkdowns, tt.svc.markdowns)
		})
	}
}

func TestIngest_WaitTimeout(t *testing.T) {
	svc := &fakeService{pdfID: "slow", text: "late", blockWait: true}
	f := &countingFactory{svc: svc}

	ing := New(Options{
		Credentials: validCreds,
		Mathpix:     types.MathpixConfig{WaitTimeout: 20 * time.Millisecond},
		Factory:     f.build,
		Logger:      zerolog.Nop(),
	})

	_, err := ing.Ingest(context.Background(), writePDF(t))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, svc.markdowns)
}

func TestIngest_Cancelled(t *testing.T) {
	svc := &fakeService{pdfID: "slow", blockWait: true}
	f := &countingFactory{svc: svc}
	var log bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := newIngester(validCreds, f, &log).Ingest(ctx, writePDF(t))
	require.ErrorIs(t, err, context.Canceled)
}

func TestIngest_RecordsJob(t *testing.T) {
	svc := &fakeService{
		pdfID: "pdf-7",
		text:  "body",
		progress: []types.Progress{
			{Status: types.JobLoaded, NumPages: 3, PercentDone: 0},
			{Status: types.JobSplit, NumPages: 3, PercentDone: 33},
			{Status: types.JobSplit, NumPages: 3, PercentDone: 66},
			{Status: types.JobCompleted, NumPages: 3, PercentDone: 100, Conversion: types.ConversionCompleted},
		},
	}
	rec := &memRecorder{}
	var seen int
	ing := New(Options{
		Credentials: validCreds,
		Factory:     (&countingFactory{svc: svc}).build,
		Recorder:    rec,
		Progress:    func(types.Progress) { seen++ },
		Logger:      zerolog.Nop(),
	})

	pdf := writePDF(t)
	_, err := ing.Run(context.Background(), pdf, filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, 4, seen)

	var statuses []types.JobStatus
	for _, j := range rec.saved {
		statuses = append(statuses, j.Status)
		assert.Equal(t, rec.saved[0].ID, j.ID)
		assert.Equal(t, "pdf-7", j.PDFID)
		assert.Equal(t, pdf, j.SourcePath)
	}
	// Repeated split polls are not re-recorded.
	assert.Equal(t, []types.JobStatus{
		types.JobSubmitted, types.JobLoaded, types.JobSplit, types.JobCompleted, types.JobCompleted,
	}, statuses)

	last := rec.saved[len(rec.saved)-1]
	assert.Equal(t, 3, last.NumPages)
	assert.Equal(t, 100.0, last.PercentDone)
	assert.False(t, last.CompletedAt.IsZero())
	assert.True(t, strings.HasSuffix(last.OutputPath, "out.txt"))
}

func TestIngest_RecordsFailure(t *testing.T) {
	svc := &fakeService{submitErr: errors.New("connection refused")}
	rec := &memRecorder{}
	ing := New(Options{
		Credentials: validCreds,
		Factory:     (&countingFactory{svc: svc}).build,
		Recorder:    rec,
		Logger:      zerolog.Nop(),
	})

	_, err := ing.Ingest(context.Background(), writePDF(t))
	require.Error(t, err)

	require.Len(t, rec.saved, 1)
	assert.Equal(t, types.JobError, rec.saved[0].Status)
	assert.Equal(t, "connection refused", rec.saved[0].Error)
	assert.Empty(t, rec.saved[0].PDFID)
}

func TestIngest_RecorderFailureIsNotFatal(t *testing.T) {
	svc := &fakeService{pdfID: "p", text: "ok"}
	rec := &memRecorder{err: fmt.Errorf("disk full")}
	var log bytes.Buffer
	ing := New(Options{
		Credentials: validCreds,
		Factory:     (&countingFactory{svc: svc}).build,
		Recorder:    rec,
		Logger:      zerolog.New(&log),
	})

	text, err := ing.Ingest(context.Background(), writePDF(t))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Contains(t, log.String(), "could not record job")
}

func TestPageCount(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "three.pdf")
	require.NoError(t, os.WriteFile(valid, minimalPDF(3), 0o644))
	n, err := PageCount(valid)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	bogus := filepath.Join(dir, "bogus.pdf")
	require.NoError(t, os.WriteFile(bogus, []byte("not a pdf at all"), 0o644))
	_, err = PageCount(bogus)
	assert.Error(t, err)

	_, err = PageCount(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

// minimalPDF builds a structurally valid PDF with n empty pages and a
// correct cross-reference table.
func minimalPDF(n int) []byte {
	var kids []string
	for i := 0; i < n; i++ {
		kids = append(kids, fmt.Sprintf("%d 0 R", i+3))
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
	}
	for i := 0; i < n; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}
