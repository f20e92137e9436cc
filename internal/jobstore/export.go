// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/paideia/paideia/pkg/types"
)

const exportLimit = 100000

// ExportYAML writes the ledger to dataDir/jobs.yaml and returns the path.
// It supports the same filters as List.
func (s *Store) ExportYAML(ctx context.Context, opts ListOptions) (string, error) {
	jobs, err := s.exportJobs(ctx, opts)
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(jobs)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(s.dataDir, "jobs.yaml")
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the ledger to dataDir/jobs.json and returns the path.
// It supports the same filters as List.
func (s *Store) ExportJSON(ctx context.Context, opts ListOptions) (string, error) {
	jobs, err := s.exportJobs(ctx, opts)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	path := filepath.Join(s.dataDir, "jobs.json")
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) exportJobs(ctx context.Context, opts ListOptions) ([]types.Job, error) {
	opts.Limit = exportLimit
	jobs, err := s.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	if jobs == nil {
		jobs = []types.Job{}
	}
	return jobs, nil
}
