package executor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type JobStatus string

const (
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusSkipped   JobStatus = "skipped"
	StatusTimedOut  JobStatus = "timed_out"
)

// JobResult records one finished (or skipped) job for the run report.
type JobResult struct {
	Index      int       `json:"index"`
	Seed       string    `json:"seed"`
	Command    string    `json:"command"`
	Invocation string    `json:"invocation"`
	Status     JobStatus `json:"status"`
	ExitCode   int       `json:"exit_code"`
	DurationMs int64     `json:"duration_ms"`
}

// Report is the machine-readable record of one sweep run.
type Report struct {
	RunID        string      `json:"run_id"`
	Environment  string      `json:"environment"`
	Manager      string      `json:"manager"`
	CommandsFile string      `json:"commands_file"`
	SeedsFile    string      `json:"seeds_file"`
	StartedAt    time.Time   `json:"started_at"`
	FinishedAt   time.Time   `json:"finished_at"`
	Jobs         []JobResult `json:"jobs"`
}

// Counts returns how many jobs completed cleanly and how many did not.
// Skipped jobs (dry runs) count toward neither.
func (r *Report) Counts() (completed, failed int) {
	for _, j := range r.Jobs {
		switch j.Status {
		case StatusCompleted:
			completed++
		case StatusFailed, StatusTimedOut:
			failed++
		}
	}
	return completed, failed
}

func (r *Report) Write(path string) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
