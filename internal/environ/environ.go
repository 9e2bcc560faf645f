// Package environ runs shell invocations inside a named, isolated runtime
// context. The runner only ever sees the manager name and the exit status.
package environ

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// Environment executes one invocation inside the named environment and
// blocks until it exits. The returned int is the process exit code; a
// non-nil error means the process could not run at all (or the context
// ended), not that it exited nonzero.
type Environment interface {
	Manager() string
	Run(ctx context.Context, env, invocation string, stdout, stderr io.Writer) (int, error)
}

// Select returns the environment implementation for the given manager name.
func Select(manager, condaBinary string) (Environment, error) {
	switch manager {
	case "conda":
		return Conda{Binary: condaBinary}, nil
	case "docker":
		d, err := NewDocker()
		if err != nil {
			return nil, err
		}
		return d, nil
	case "host":
		return Host{}, nil
	default:
		return nil, fmt.Errorf("unsupported manager %q", manager)
	}
}

// Host runs the invocation directly with no isolation. The environment name
// is accepted but unused.
type Host struct{}

func (Host) Manager() string { return "host" }

func (Host) Run(ctx context.Context, env, invocation string, stdout, stderr io.Writer) (int, error) {
	return runCommand(ctx, stdout, stderr, "sh", "-c", invocation)
}

func runCommand(ctx context.Context, stdout, stderr io.Writer, binary string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("run %s: %w", binary, err)
	}
	return 0, nil
}
