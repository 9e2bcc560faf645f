package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"sweeprun/internal/environ"
	"sweeprun/internal/sweep"
)

// ErrDeclined is returned when the user rejects the confirmation prompt.
var ErrDeclined = errors.New("sweep declined")

type Options struct {
	DryRun     bool
	FailFast   bool
	Confirm    bool
	Timeout    time.Duration
	ReportPath string
}

// Runner executes a sweep strictly sequentially: job k+1 never starts before
// job k's process has exited.
type Runner struct {
	Sweep  *sweep.Sweep
	Env    environ.Environment
	Opts   Options
	Logger *zap.Logger
	Stdout io.Writer
	Stdin  io.Reader
	Now    func() time.Time
}

func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if r.Sweep == nil {
		return nil, errors.New("sweep is required")
	}
	if r.Env == nil {
		return nil, errors.New("environment is required")
	}
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}
	if r.Stdout == nil {
		r.Stdout = os.Stdout
	}
	if r.Now == nil {
		r.Now = time.Now
	}

	jobs := r.Sweep.Jobs()

	fmt.Fprintf(r.Stdout, "environment: %s\n", r.Sweep.Environment)
	fmt.Fprintf(r.Stdout, "commands:    %s\n", r.Sweep.CommandsFile)
	fmt.Fprintf(r.Stdout, "seeds:       %s\n", r.Sweep.SeedsFile)
	fmt.Fprintf(r.Stdout, "jobs:        %d\n", len(jobs))

	r.Logger.Info("starting sweep",
		zap.String("run_id", r.Sweep.RunID),
		zap.String("environment", r.Sweep.Environment),
		zap.String("manager", r.Env.Manager()),
		zap.Int("jobs", len(jobs)))

	if r.Opts.Confirm && !r.Opts.DryRun {
		ok, err := r.confirm(len(jobs))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrDeclined
		}
	}

	report := &Report{
		RunID:        r.Sweep.RunID,
		Environment:  r.Sweep.Environment,
		Manager:      r.Env.Manager(),
		CommandsFile: r.Sweep.CommandsFile,
		SeedsFile:    r.Sweep.SeedsFile,
		StartedAt:    r.Now().UTC(),
	}

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := r.runJob(ctx, job, len(jobs))
		if err != nil {
			return nil, err
		}
		report.Jobs = append(report.Jobs, res)

		if r.Opts.FailFast && res.Status != StatusCompleted && res.Status != StatusSkipped {
			if finErr := r.finish(report); finErr != nil {
				return report, finErr
			}
			if res.Status == StatusTimedOut {
				return report, fmt.Errorf("job %d timed out, stopping sweep", job.Index)
			}
			return report, fmt.Errorf("job %d exited with code %d, stopping sweep", job.Index, res.ExitCode)
		}
	}

	if err := r.finish(report); err != nil {
		return report, err
	}
	return report, nil
}

func (r *Runner) runJob(ctx context.Context, job sweep.Job, total int) (JobResult, error) {
	invocation := job.Invocation()
	res := JobResult{
		Index:      job.Index,
		Seed:       job.Seed,
		Command:    job.Command,
		Invocation: invocation,
	}

	fmt.Fprintf(r.Stdout, "==> job %d/%d seed=%s command=%s\n", job.Index+1, total, job.Seed, job.Command)

	if r.Opts.DryRun {
		fmt.Fprintf(r.Stdout, "dry-run: would execute %q\n", invocation)
		res.Status = StatusSkipped
		return res, nil
	}

	jobCtx := ctx
	if r.Opts.Timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, r.Opts.Timeout)
		defer cancel()
	}

	out := newPrefixWriter(r.Stdout, fmt.Sprintf("[job %d/%d] ", job.Index+1, total))
	defer out.Flush()

	start := r.Now()
	code, err := r.Env.Run(jobCtx, r.Sweep.Environment, invocation, out, out)
	res.DurationMs = r.Now().Sub(start).Milliseconds()

	if err != nil {
		// A per-job timeout fails the job; anything else (launch failure,
		// sweep-level cancellation) aborts the whole run.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			res.Status = StatusTimedOut
			res.ExitCode = -1
			r.Logger.Warn("job timed out",
				zap.Int("index", job.Index),
				zap.String("seed", job.Seed),
				zap.Duration("timeout", r.Opts.Timeout))
			return res, nil
		}
		return res, fmt.Errorf("job %d: %w", job.Index, err)
	}

	res.ExitCode = code
	if code != 0 {
		res.Status = StatusFailed
		r.Logger.Warn("job failed",
			zap.Int("index", job.Index),
			zap.String("seed", job.Seed),
			zap.String("command", job.Command),
			zap.Int("exit_code", code))
	} else {
		res.Status = StatusCompleted
		r.Logger.Info("job completed",
			zap.Int("index", job.Index),
			zap.String("seed", job.Seed),
			zap.Int64("duration_ms", res.DurationMs))
	}
	return res, nil
}

func (r *Runner) finish(report *Report) error {
	report.FinishedAt = r.Now().UTC()

	completed, failed := report.Counts()
	fmt.Fprintf(r.Stdout, "sweep finished: %d completed, %d failed, %d total\n",
		completed, failed, len(report.Jobs))
	r.Logger.Info("sweep finished",
		zap.String("run_id", report.RunID),
		zap.Int("completed", completed),
		zap.Int("failed", failed))

	if r.Opts.ReportPath != "" {
		if err := report.Write(r.Opts.ReportPath); err != nil {
			return err
		}
		fmt.Fprintf(r.Stdout, "report written: %s\n", r.Opts.ReportPath)
	}
	return nil
}

func (r *Runner) confirm(total int) (bool, error) {
	in := r.Stdin
	if in == nil {
		in = os.Stdin
	}
	fmt.Fprintf(r.Stdout, "launch %d jobs in environment %q? [y/N] ", total, r.Sweep.Environment)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
