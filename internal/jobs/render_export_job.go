// Package jobs holds the concrete background jobs submitted to the worker
// dispatcher.
package jobs

import (
	"fmt"
	"os"
	"path/filepath"

	"scribeview/sync-engine/internal/export"
)

// RenderExportJob renders one export encoding of a file to disk. Rendering
// is pure, so the job captures an immutable snapshot of the merged entries
// and the speaker name map at submission time.
type RenderExportJob struct {
	JobID      string
	Format     export.Format
	Entries    []export.Entry
	Names      map[string]string
	OutputPath string
}

func (j *RenderExportJob) ID() string { return j.JobID }

// Execute renders the encoding and writes it under OutputPath.
func (j *RenderExportJob) Execute() error {
	data, err := export.Render(j.Format, j.Entries, j.Names)
	if err != nil {
		return fmt.Errorf("render %s export: %w", j.Format, err)
	}
	if err := os.MkdirAll(filepath.Dir(j.OutputPath), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(j.OutputPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s export: %w", j.Format, err)
	}
	return nil
}
