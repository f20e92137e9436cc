// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrOutputExists reports that the output file was already present when the
// run started. No ingestion call is made in that case.
var ErrOutputExists = errors.New("output already exists")

// Outcome describes how a successful Run ended.
type Outcome string

const (
	// OutcomeWritten means the text was saved to the output path.
	OutcomeWritten Outcome = "written"
	// OutcomeEmpty means the service returned no text; nothing was written.
	OutcomeEmpty Outcome = "empty"
	// OutcomeRaced means the output path appeared during ingestion; the
	// existing file was left untouched.
	OutcomeRaced Outcome = "raced"
)

// Run is the guarded entry point: it refuses to start when outputPath
// exists, ingests inputPath, and saves the text to outputPath without ever
// overwriting an existing file.
//
// An empty result is logged at error level and treated as a skip, not a
// failure. A file that appears while the remote job runs is logged as a
// warning and also treated as a skip.
func (i *Ingester) Run(ctx context.Context, inputPath, outputPath string) (Outcome, error) {
	log := i.opts.Logger.With().Str("output", outputPath).Logger()

	if _, err := os.Stat(outputPath); err == nil {
		log.Error().Msg("output already exists, skipping ingestion")
		return "", fmt.Errorf("%w: %s", ErrOutputExists, outputPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("checking %s: %w", outputPath, err)
	}

	text, err := i.ingest(ctx, inputPath, outputPath)
	if err != nil {
		return "", err
	}

	if text == "" {
		log.Error().Msg("no extracted text to save")
		return OutcomeEmpty, nil
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	if err := WriteOnce(outputPath, text); err != nil {
		if errors.Is(err, fs.ErrExist) {
			log.Warn().Msg("output appeared during ingestion, skipping write")
			return OutcomeRaced, nil
		}
		return "", err
	}

	log.Info().Int("bytes", len(text)).Msg("saved extracted text")
	return OutcomeWritten, nil
}

// WriteOnce creates path exclusively and writes text to it. If path already
// exists the returned error satisfies errors.Is(err, fs.ErrExist) and the
// existing file is not modified. A failed write removes the partial file.
func WriteOnce(path, text string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if _, err := f.WriteString(text); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
