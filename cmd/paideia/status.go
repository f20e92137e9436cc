// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/paideia/paideia/internal/mathpix"
	"github.com/paideia/paideia/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status <pdf_id>",
	Short: "Show the remote state of a submitted PDF job",
	Long: `Status queries Mathpix for a PDF job handle returned by an earlier ingest
run (see "paideia jobs") and prints its processing and conversion state.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().String("app-id", "", "Mathpix app id (overrides "+envAppID+")")
	statusCmd.Flags().String("app-key", "", "Mathpix app key (overrides "+envAppKey+")")
	statusCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(statusCmd)
}

// jobReport is the status command's output.
type jobReport struct {
	types.Progress
	Conversions map[string]types.ConversionStatus `json:"conversions,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	creds := resolveCredentials(cmd)
	if err := creds.Validate(); err != nil {
		return err
	}

	ctx := logger.WithContext(cmd.Context())
	client := mathpix.New(creds, cfg.Mathpix)

	progress, err := client.Status(ctx, args[0])
	if err != nil {
		return err
	}
	report := jobReport{Progress: progress}
	if progress.Status == types.JobCompleted {
		conv, err := client.ConversionStatus(ctx, args[0])
		if err != nil {
			return err
		}
		report.Conversions = conv
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatStatus(cmd.OutOrStdout(), report, jsonOutput)
}

func formatStatus(w io.Writer, r jobReport, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintf(w, "PDF:      %s\n", r.PDFID)
	fmt.Fprintf(w, "Status:   %s\n", r.Status)
	if r.NumPages > 0 {
		fmt.Fprintf(w, "Pages:    %d/%d\n", r.NumPagesCompleted, r.NumPages)
	}
	fmt.Fprintf(w, "Progress: %.0f%%\n", r.PercentDone)
	if r.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", r.Error)
	}

	formats := make([]string, 0, len(r.Conversions))
	for f := range r.Conversions {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	for _, f := range formats {
		fmt.Fprintf(w, "Format %s: %s\n", f, r.Conversions[f])
	}
	return nil
}
