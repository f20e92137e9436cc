// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paideia/paideia/internal/jobstore"
	"github.com/paideia/paideia/pkg/types"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [id]",
	Short: "List or export recorded ingestion runs",
	Long: `Jobs reads the local ledger of ingestion runs (data/paideia.db by default).
With an argument it shows the run with that local id or Mathpix pdf_id.

Use --export yaml or --export json to write the ledger to the data directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	jobsCmd.Flags().String("status", "", "filter by status: submitted, received, loaded, split, completed, error")
	jobsCmd.Flags().Int("limit", 0, "maximum jobs to list (0 = default 50)")
	jobsCmd.Flags().Bool("json", false, "output as JSON")
	jobsCmd.Flags().String("export", "", "export the ledger: yaml or json")

	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	store, err := jobstore.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if len(args) == 1 {
		job, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		return formatJobs(out, []types.Job{job}, jsonOutput)
	}

	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	opts := jobstore.ListOptions{Status: types.JobStatus(status), Limit: limit}

	format, _ := cmd.Flags().GetString("export")
	switch format {
	case "":
	case "yaml":
		path, err := store.ExportYAML(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported to %s\n", path)
		return nil
	case "json":
		path, err := store.ExportJSON(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported to %s\n", path)
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	jobs, err := store.List(ctx, opts)
	if err != nil {
		return err
	}
	return formatJobs(out, jobs, jsonOutput)
}

func formatJobs(w io.Writer, jobs []types.Job, jsonOutput bool) error {
	if jsonOutput {
		if jobs == nil {
			jobs = []types.Job{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jobs)
	}

	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-10s  %-24s  %-5s  %-20s  %s\n",
		"ID", "Status", "PDF ID", "Pages", "Submitted", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for _, j := range jobs {
		pdfID := j.PDFID
		if len(pdfID) > 24 {
			pdfID = pdfID[:21] + "..."
		}
		submitted := ""
		if !j.SubmittedAt.IsZero() {
			submitted = j.SubmittedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%-36s  %-10s  %-24s  %-5d  %-20s  %s\n",
			j.ID, j.Status, pdfID, j.NumPages, submitted, j.SourcePath)
		if j.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", j.Error)
		}
	}

	fmt.Fprintf(w, "\n%d jobs\n", len(jobs))
	return nil
}
