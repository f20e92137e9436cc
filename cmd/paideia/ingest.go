// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/paideia/paideia/internal/ingest"
	"github.com/paideia/paideia/internal/jobstore"
	"github.com/paideia/paideia/internal/secrets"
	"github.com/paideia/paideia/pkg/types"
)

const (
	envAppID  = "MATHPIX_APP_ID"
	envAppKey = "MATHPIX_APP_KEY"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Convert a PDF to Markdown text through Mathpix",
	Long: `Ingest uploads a PDF to Mathpix, waits for the conversion, and saves the
Markdown text to the output path.

The output is written at most once. If the output file already exists the
command exits with an error without contacting Mathpix. If the file appears
while the conversion runs, the write is skipped.

Credentials come from --app-id/--app-key, then MATHPIX_APP_ID/MATHPIX_APP_KEY
(a .env file is honored), then .secrets/mathpix-app-id and
.secrets/mathpix-app-key.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("input", "", "PDF to convert (default pdfs/algebra-trig.pdf)")
	ingestCmd.Flags().String("output", "", "text file to write (default texts/text.txt)")
	ingestCmd.Flags().String("pages", "", "page ranges to convert, e.g. 1-3,7")
	ingestCmd.Flags().Duration("wait-timeout", 0, "maximum time to wait for the conversion (default 30m)")
	ingestCmd.Flags().String("app-id", "", "Mathpix app id (overrides "+envAppID+")")
	ingestCmd.Flags().String("app-key", "", "Mathpix app key (overrides "+envAppKey+")")
	ingestCmd.Flags().Bool("progress", true, "show a spinner while waiting")
	ingestCmd.Flags().Bool("no-record", false, "do not record the run in the job ledger")

	viper.BindPFlag("ingest.input_path", ingestCmd.Flags().Lookup("input"))
	viper.BindPFlag("ingest.output_path", ingestCmd.Flags().Lookup("output"))
	viper.BindPFlag("ingest.page_ranges", ingestCmd.Flags().Lookup("pages"))
	viper.BindPFlag("mathpix.wait_timeout", ingestCmd.Flags().Lookup("wait-timeout"))

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := ingest.Options{
		Credentials: resolveCredentials(cmd),
		Mathpix:     cfg.Mathpix,
		PageRanges:  cfg.Ingest.PageRanges,
		Logger:      logger,
	}

	noRecord, _ := cmd.Flags().GetBool("no-record")
	if !noRecord && !cfg.Store.Disabled {
		store, err := jobstore.Open(cfg.Store)
		if err != nil {
			logger.Warn().Err(err).Msg("job ledger unavailable, continuing without it")
		} else {
			defer store.Close()
			opts.Recorder = store
		}
	}

	showProgress, _ := cmd.Flags().GetBool("progress")
	if showProgress {
		ind := newWaitIndicator(cmd.ErrOrStderr())
		defer ind.stop()
		opts.Progress = ind.update
	}

	outcome, err := ingest.New(opts).Run(ctx, cfg.Ingest.InputPath, cfg.Ingest.OutputPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch outcome {
	case ingest.OutcomeWritten:
		fmt.Fprintf(out, "Saved extracted text to %s\n", cfg.Ingest.OutputPath)
	case ingest.OutcomeRaced:
		fmt.Fprintf(out, "Skipped: %s appeared during ingestion\n", cfg.Ingest.OutputPath)
	case ingest.OutcomeEmpty:
		fmt.Fprintln(out, "No text extracted; nothing written")
	}
	return nil
}

// resolveCredentials applies flag > environment > .secrets precedence.
func resolveCredentials(cmd *cobra.Command) types.Credentials {
	appID, _ := cmd.Flags().GetString("app-id")
	appKey, _ := cmd.Flags().GetString("app-key")
	if appID == "" {
		appID = os.Getenv(envAppID)
	}
	if appKey == "" {
		appKey = os.Getenv(envAppKey)
	}
	return secrets.Credentials(types.Credentials{AppID: appID, AppKey: appKey}, loadedSecrets)
}

// waitIndicator shows a spinner with the latest remote status. It starts on
// the first progress report so nothing is drawn for failed submissions.
type waitIndicator struct {
	s       *spinner.Spinner
	started bool
}

func newWaitIndicator(w io.Writer) *waitIndicator {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	return &waitIndicator{s: s}
}

func (ind *waitIndicator) update(p types.Progress) {
	ind.s.Lock()
	ind.s.Suffix = " " + progressLine(p)
	ind.s.Unlock()
	if finished(p) {
		ind.stop()
		return
	}
	if !ind.started {
		ind.started = true
		ind.s.Start()
	}
}

func (ind *waitIndicator) stop() {
	if ind.started {
		ind.started = false
		ind.s.Stop()
	}
}

// finished reports whether p is the last poll of a wait.
func finished(p types.Progress) bool {
	switch {
	case p.Status == types.JobError:
		return true
	case p.Status == types.JobCompleted:
		return p.Conversion == types.ConversionCompleted || p.Conversion == types.ConversionError
	}
	return false
}

func progressLine(p types.Progress) string {
	line := string(p.Status)
	if p.NumPages > 0 {
		line += fmt.Sprintf(" %d/%d pages", p.NumPagesCompleted, p.NumPages)
	}
	if p.PercentDone > 0 {
		line += fmt.Sprintf(" (%.0f%%)", p.PercentDone)
	}
	if p.Conversion != "" {
		line += ", markdown " + string(p.Conversion)
	}
	return line
}
