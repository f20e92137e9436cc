// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest submits a local PDF to the Mathpix conversion service, waits
// for the remote job, and returns or persists the extracted Markdown text.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/paideia/paideia/internal/mathpix"
	"github.com/paideia/paideia/pkg/types"
)

var (
	// ErrConfiguration reports missing credentials. It is returned before
	// any client is built or any request is sent.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidInput reports an empty or unusable document path. It is
	// returned before any request is sent.
	ErrInvalidInput = errors.New("invalid input")
)

// Service is the remote conversion API. *mathpix.Client implements it.
type Service interface {
	Submit(ctx context.Context, path string, opts mathpix.SubmitOptions) (string, error)
	WaitUntilComplete(ctx context.Context, pdfID string, interval time.Duration, progress mathpix.ProgressFunc) error
	Markdown(ctx context.Context, pdfID string) (string, error)
}

// ClientFactory builds a Service bound to credentials.
type ClientFactory func(types.Credentials, types.MathpixConfig) Service

// MathpixFactory is the production ClientFactory.
func MathpixFactory(creds types.Credentials, cfg types.MathpixConfig) Service {
	return mathpix.New(creds, cfg)
}

// Recorder persists ledger entries for ingestion runs. Save is called with
// the same Job.ID as the run progresses.
type Recorder interface {
	Save(ctx context.Context, job types.Job) error
}

// Options configures an Ingester.
type Options struct {
	Credentials types.Credentials
	Mathpix     types.MathpixConfig

	// PageRanges is passed through to the submission, e.g. "1-3,7".
	PageRanges string

	// Factory defaults to MathpixFactory.
	Factory ClientFactory

	// Recorder is optional.
	Recorder Recorder

	// Progress is optional and receives every status poll.
	Progress mathpix.ProgressFunc

	Logger zerolog.Logger
}

// Ingester runs the submit, wait, fetch sequence against one service.
type Ingester struct {
	opts Options
	log  zerolog.Logger
	now  func() time.Time
}

// New creates an Ingester. Credentials are checked on each Ingest call, not
// here, so a misconfigured Ingester can still be built and reported on.
func New(opts Options) *Ingester {
	if opts.Factory == nil {
		opts.Factory = MathpixFactory
	}
	return &Ingester{
		opts: opts,
		log:  opts.Logger.With().Str("component", "mathpix").Logger(),
		now:  time.Now,
	}
}

// Ingest uploads the PDF at documentPath, blocks until Mathpix reports the
// job and its Markdown conversion complete, and returns the Markdown text
// unchanged. The wait is bounded by Mathpix.WaitTimeout and by ctx.
//
// Remote failures are returned wrapped but otherwise untouched; Ingest does
// not retry them.
func (i *Ingester) Ingest(ctx context.Context, documentPath string) (string, error) {
	return i.ingest(ctx, documentPath, "")
}

func (i *Ingester) ingest(ctx context.Context, documentPath, outputPath string) (string, error) {
	if err := i.opts.Credentials.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if err := checkDocument(documentPath); err != nil {
		return "", err
	}

	log := i.log.With().Str("pdf", documentPath).Logger()
	ctx = log.WithContext(ctx)

	pages, err := PageCount(documentPath)
	if err != nil {
		log.Warn().Err(err).Msg("could not read PDF structure, submitting anyway")
	} else {
		log.Debug().Int("pages", pages).Msg("inspected PDF")
	}

	job := types.Job{
		ID:         uuid.NewString(),
		SourcePath: documentPath,
		OutputPath: outputPath,
		NumPages:   pages,
	}

	client := i.opts.Factory(i.opts.Credentials, i.opts.Mathpix)

	pdfID, err := client.Submit(ctx, documentPath, mathpix.SubmitOptions{PageRanges: i.opts.PageRanges})
	if err != nil {
		i.fail(ctx, job, err)
		return "", err
	}
	job.PDFID = pdfID
	job.Status = types.JobSubmitted
	job.SubmittedAt = i.now().UTC()
	i.record(ctx, job)

	log = log.With().Str("pdf_id", pdfID).Logger()
	log.Info().Msg("PDF job submitted")

	log.Info().Msg("waiting for PDF processing to complete")
	if err := i.wait(ctx, client, &job, log); err != nil {
		i.fail(ctx, job, err)
		return "", err
	}
	log.Info().Msg("PDF processing completed")

	log.Info().Msg("retrieving extracted markdown")
	text, err := client.Markdown(ctx, pdfID)
	if err != nil {
		i.fail(ctx, job, err)
		return "", err
	}
	log.Info().Int("bytes", len(text)).Msg("markdown retrieval completed")

	job.Status = types.JobCompleted
	job.PercentDone = 100
	job.CompletedAt = i.now().UTC()
	i.record(ctx, job)

	return text, nil
}

func (i *Ingester) wait(ctx context.Context, client Service, job *types.Job, log zerolog.Logger) error {
	if d := i.opts.Mathpix.WaitTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	last := job.Status
	return client.WaitUntilComplete(ctx, job.PDFID, i.opts.Mathpix.PollInterval, func(p types.Progress) {
		log.Debug().
			Str("status", string(p.Status)).
			Str("conversion", string(p.Conversion)).
			Float64("percent_done", p.PercentDone).
			Msg("polled job status")

		job.PercentDone = p.PercentDone
		if p.NumPages > 0 {
			job.NumPages = p.NumPages
		}
		if p.Status != last {
			last = p.Status
			job.Status = p.Status
			i.record(ctx, *job)
		}
		if i.opts.Progress != nil {
			i.opts.Progress(p)
		}
	})
}

func (i *Ingester) fail(ctx context.Context, job types.Job, err error) {
	job.Status = types.JobError
	job.Error = err.Error()
	job.CompletedAt = i.now().UTC()
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = job.CompletedAt
	}
	i.record(ctx, job)
}

// record saves the job if a Recorder is configured. Ledger failures never
// fail the ingestion.
func (i *Ingester) record(ctx context.Context, job types.Job) {
	if i.opts.Recorder == nil {
		return
	}
	// The ledger write must land even when the wait was cancelled.
	ctx = context.WithoutCancel(ctx)
	if err := i.opts.Recorder.Save(ctx, job); err != nil {
		i.log.Warn().Err(err).Str("job", job.ID).Msg("could not record job")
	}
}

func checkDocument(path string) error {
	if path == "" {
		return fmt.Errorf("%w: PDF file path is required", ErrInvalidInput)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrInvalidInput, path)
	}
	return nil
}
