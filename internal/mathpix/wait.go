// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mathpix

import (
	"context"
	"fmt"
	"time"

	"github.com/paideia/paideia/pkg/types"
)

// DefaultPollInterval is used when WaitUntilComplete gets a non-positive interval.
const DefaultPollInterval = 3 * time.Second

// ProgressFunc receives every status observation made while waiting.
type ProgressFunc func(types.Progress)

// WaitUntilComplete polls the job until the PDF is processed and its
// Markdown conversion is done. It returns nil on completion, an error
// wrapping ErrJobFailed when Mathpix reports a failure, and the context's
// error when ctx is cancelled or its deadline passes. The wait has no bound
// of its own; callers set one on ctx.
func (c *Client) WaitUntilComplete(ctx context.Context, pdfID string, interval time.Duration, progress ProgressFunc) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := c.poll(ctx, pdfID, progress)
		if err != nil || done {
			return err
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", pdfID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// poll makes one status observation and reports whether the job is done.
func (c *Client) poll(ctx context.Context, pdfID string, progress ProgressFunc) (bool, error) {
	p, err := c.Status(ctx, pdfID)
	if err != nil {
		return false, err
	}

	switch p.Status {
	case types.JobError:
		notify(progress, p)
		return false, fmt.Errorf("%w: %s: %s", ErrJobFailed, pdfID, p.Error)
	case types.JobCompleted:
	default:
		notify(progress, p)
		return false, nil
	}

	conversions, err := c.ConversionStatus(ctx, pdfID)
	if err != nil {
		return false, err
	}
	p.Conversion = conversions[formatMarkdown]
	if p.Conversion == "" {
		p.Conversion = types.ConversionProcessing
	}
	notify(progress, p)

	switch p.Conversion {
	case types.ConversionCompleted:
		return true, nil
	case types.ConversionError:
		return false, fmt.Errorf("%w: %s: markdown conversion failed", ErrJobFailed, pdfID)
	default:
		return false, nil
	}
}

func notify(progress ProgressFunc, p types.Progress) {
	if progress != nil {
		progress(p)
	}
}
