package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweeprun/internal/sweep"
)

// fakeEnv records invocations and fails if a second job starts before the
// previous one returned. Invocations listed in hangOn block until the job
// context ends, like a hung training process.
type fakeEnv struct {
	t           *testing.T
	invocations []string
	envs        []string
	exitCodes   map[string]int
	hangOn      map[string]bool
	running     bool
}

func (f *fakeEnv) Manager() string { return "fake" }

func (f *fakeEnv) Run(ctx context.Context, env, invocation string, stdout, stderr io.Writer) (int, error) {
	if f.running {
		f.t.Fatal("job started before the previous one completed")
	}
	f.running = true
	defer func() { f.running = false }()

	f.envs = append(f.envs, env)
	f.invocations = append(f.invocations, invocation)

	if f.hangOn[invocation] {
		<-ctx.Done()
		return -1, ctx.Err()
	}

	fmt.Fprintf(stdout, "output for %s\n", invocation)
	return f.exitCodes[invocation], nil
}

func testSweep() *sweep.Sweep {
	return &sweep.Sweep{
		RunID:        "test-run",
		Environment:  "training",
		CommandsFile: "commands.txt",
		SeedsFile:    "seeds.txt",
		Commands:     []string{"cmdA", " cmdB"},
		Seeds:        []string{"1", "2"},
	}
}

func TestRunnerExecutesCrossProductInOrder(t *testing.T) {
	env := &fakeEnv{t: t}
	var out bytes.Buffer
	r := &Runner{Sweep: testSweep(), Env: env, Stdout: &out}

	report, err := r.Run(context.Background())
	require.NoError(t, err)

	want := []string{
		"cmdA --seed 1",
		" cmdB --seed 1",
		"cmdA --seed 2",
		" cmdB --seed 2",
	}
	assert.Equal(t, want, env.invocations)
	assert.Equal(t, []string{"training", "training", "training", "training"}, env.envs)

	require.Len(t, report.Jobs, 4)
	for i, j := range report.Jobs {
		assert.Equal(t, i, j.Index)
		assert.Equal(t, StatusCompleted, j.Status)
		assert.Zero(t, j.ExitCode)
	}
}

func TestRunnerEmptySweepRunsZeroJobs(t *testing.T) {
	env := &fakeEnv{t: t}
	s := testSweep()
	s.Seeds = nil

	r := &Runner{Sweep: s, Env: env, Stdout: io.Discard}
	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, env.invocations)
	assert.Empty(t, report.Jobs)
}

func TestRunnerDryRunLaunchesNothing(t *testing.T) {
	env := &fakeEnv{t: t}
	var out bytes.Buffer
	r := &Runner{
		Sweep:  testSweep(),
		Env:    env,
		Opts:   Options{DryRun: true},
		Stdout: &out,
	}

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, env.invocations)

	require.Len(t, report.Jobs, 4)
	for _, j := range report.Jobs {
		assert.Equal(t, StatusSkipped, j.Status)
	}
	assert.Contains(t, out.String(), `would execute "cmdA --seed 1"`)
}

func TestRunnerContinuesPastFailuresByDefault(t *testing.T) {
	env := &fakeEnv{t: t, exitCodes: map[string]int{"cmdA --seed 1": 2}}
	r := &Runner{Sweep: testSweep(), Env: env, Stdout: io.Discard}

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, env.invocations, 4)

	completed, failed := report.Counts()
	assert.Equal(t, 3, completed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, StatusFailed, report.Jobs[0].Status)
	assert.Equal(t, 2, report.Jobs[0].ExitCode)
}

func TestRunnerFailFastStopsAtFirstFailure(t *testing.T) {
	env := &fakeEnv{t: t, exitCodes: map[string]int{" cmdB --seed 1": 1}}
	r := &Runner{
		Sweep:  testSweep(),
		Env:    env,
		Opts:   Options{FailFast: true},
		Stdout: io.Discard,
	}

	report, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Len(t, env.invocations, 2)
	require.Len(t, report.Jobs, 2)
	assert.Equal(t, StatusFailed, report.Jobs[1].Status)
}

func TestRunnerTimeoutFailsJobAndContinues(t *testing.T) {
	env := &fakeEnv{t: t, hangOn: map[string]bool{" cmdB --seed 1": true}}
	r := &Runner{
		Sweep:  testSweep(),
		Env:    env,
		Opts:   Options{Timeout: 20 * time.Millisecond},
		Stdout: io.Discard,
	}

	report, err := r.Run(context.Background())
	require.NoError(t, err)

	// The hung job is recorded as timed out and the sweep moves on.
	assert.Len(t, env.invocations, 4)
	require.Len(t, report.Jobs, 4)
	assert.Equal(t, StatusTimedOut, report.Jobs[1].Status)
	assert.Equal(t, -1, report.Jobs[1].ExitCode)
	assert.Equal(t, StatusCompleted, report.Jobs[2].Status)

	completed, failed := report.Counts()
	assert.Equal(t, 3, completed)
	assert.Equal(t, 1, failed)
}

func TestRunnerTimeoutTripsFailFast(t *testing.T) {
	env := &fakeEnv{t: t, hangOn: map[string]bool{"cmdA --seed 1": true}}
	r := &Runner{
		Sweep:  testSweep(),
		Env:    env,
		Opts:   Options{Timeout: 20 * time.Millisecond, FailFast: true},
		Stdout: io.Discard,
	}

	report, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Len(t, env.invocations, 1)
	require.Len(t, report.Jobs, 1)
	assert.Equal(t, StatusTimedOut, report.Jobs[0].Status)
}

func TestRunnerWritesReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	env := &fakeEnv{t: t}
	r := &Runner{
		Sweep:  testSweep(),
		Env:    env,
		Opts:   Options{ReportPath: path},
		Stdout: io.Discard,
	}

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Report
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "test-run", got.RunID)
	assert.Equal(t, "training", got.Environment)
	assert.Equal(t, "fake", got.Manager)
	assert.Len(t, got.Jobs, 4)
	assert.Equal(t, "cmdA --seed 1", got.Jobs[0].Invocation)
}

func TestRunnerConfirmDeclinedRunsNothing(t *testing.T) {
	env := &fakeEnv{t: t}
	r := &Runner{
		Sweep:  testSweep(),
		Env:    env,
		Opts:   Options{Confirm: true},
		Stdout: io.Discard,
		Stdin:  strings.NewReader("n\n"),
	}

	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrDeclined)
	assert.Empty(t, env.invocations)
}

func TestRunnerConfirmAccepted(t *testing.T) {
	env := &fakeEnv{t: t}
	r := &Runner{
		Sweep:  testSweep(),
		Env:    env,
		Opts:   Options{Confirm: true},
		Stdout: io.Discard,
		Stdin:  strings.NewReader("y\n"),
	}

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, env.invocations, 4)
}

func TestRunnerStopsWhenContextCanceled(t *testing.T) {
	env := &fakeEnv{t: t}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{Sweep: testSweep(), Env: env, Stdout: io.Discard}
	_, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, env.invocations)
}
