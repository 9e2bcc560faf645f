package environ

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// Conda executes invocations through `conda run -n <env>`. This is the
// default manager; training commands keep their shell semantics because the
// fragment is handed to `sh -c` inside the environment.
type Conda struct {
	Binary string
}

func (Conda) Manager() string { return "conda" }

func (c Conda) Run(ctx context.Context, env, invocation string, stdout, stderr io.Writer) (int, error) {
	binary := resolveConda(c.Binary)
	return runCommand(ctx, stdout, stderr, binary, condaArgs(env, invocation)...)
}

func condaArgs(env, invocation string) []string {
	return []string{"run", "-n", env, "sh", "-c", invocation}
}

// resolveConda prefers the configured binary on PATH and falls back to the
// default miniconda install location when conda is not on PATH.
func resolveConda(binary string) string {
	if binary == "" {
		binary = "conda"
	}
	if _, err := exec.LookPath(binary); err == nil {
		return binary
	}
	if binary == "conda" {
		home, err := os.UserHomeDir()
		if err == nil {
			fallback := filepath.Join(home, "miniconda3", "bin", "conda")
			if _, err := os.Stat(fallback); err == nil {
				return fallback
			}
		}
	}
	return binary
}
