// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jobstore persists a ledger of ingestion runs in SQLite.
package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/paideia/paideia/pkg/types"
)

const (
	dbFile = "paideia.db"

	defaultLimit = 50
)

// ErrNotFound is returned by Get for an unknown job id.
var ErrNotFound = errors.New("job not found")

// Store manages the job ledger database.
type Store struct {
	db      *sql.DB
	dataDir string
}

// Open opens or creates the ledger at dataDir/paideia.db and creates the
// schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dataDir: cfg.DataDir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			pdf_id TEXT,
			source_path TEXT NOT NULL,
			output_path TEXT,
			status TEXT NOT NULL,
			num_pages INTEGER,
			percent_done REAL,
			submitted_at TEXT NOT NULL,
			completed_at TEXT,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_pdf_id ON jobs(pdf_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_submitted_at ON jobs(submitted_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save inserts job or replaces the stored record with the same id.
func (s *Store) Save(ctx context.Context, job types.Job) error {
	if job.ID == "" {
		return fmt.Errorf("saving job: empty id")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, pdf_id, source_path, output_path, status, num_pages, percent_done, submitted_at, completed_at, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			pdf_id=excluded.pdf_id, source_path=excluded.source_path, output_path=excluded.output_path,
			status=excluded.status, num_pages=excluded.num_pages, percent_done=excluded.percent_done,
			submitted_at=excluded.submitted_at, completed_at=excluded.completed_at, error=excluded.error`,
		job.ID, job.PDFID, job.SourcePath, job.OutputPath, string(job.Status),
		job.NumPages, job.PercentDone, formatTime(job.SubmittedAt), formatTime(job.CompletedAt), job.Error,
	)
	if err != nil {
		return fmt.Errorf("saving job %s: %w", job.ID, err)
	}
	return nil
}

const selectJob = `SELECT id, pdf_id, source_path, output_path, status, num_pages, percent_done, submitted_at, completed_at, error FROM jobs`

// Get returns the job with the given local id or remote pdf_id.
func (s *Store) Get(ctx context.Context, id string) (types.Job, error) {
	row := s.db.QueryRowContext(ctx, selectJob+` WHERE id = ? OR pdf_id = ? ORDER BY submitted_at DESC LIMIT 1`, id, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return types.Job{}, fmt.Errorf("reading job %s: %w", id, err)
	}
	return job, nil
}

// ListOptions filters List results.
type ListOptions struct {
	// Status keeps only jobs in this state when set.
	Status types.JobStatus
	// Limit caps the result count (default 50).
	Limit int
}

// List returns jobs newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]types.Job, error) {
	var where []string
	var args []any
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	query := selectJob
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY submitted_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(sc scanner) (types.Job, error) {
	var (
		job                    types.Job
		pdfID, out, errText    sql.NullString
		status                 string
		pages                  sql.NullInt64
		percent                sql.NullFloat64
		submitted, completedAt sql.NullString
	)
	if err := sc.Scan(&job.ID, &pdfID, &job.SourcePath, &out, &status, &pages, &percent, &submitted, &completedAt, &errText); err != nil {
		return types.Job{}, err
	}
	job.PDFID = pdfID.String
	job.OutputPath = out.String
	job.Status = types.JobStatus(status)
	job.NumPages = int(pages.Int64)
	job.PercentDone = percent.Float64
	job.SubmittedAt = parseTime(submitted.String)
	job.CompletedAt = parseTime(completedAt.String)
	job.Error = errText.String
	return job, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
