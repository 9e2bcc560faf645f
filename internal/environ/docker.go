package environ

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// Docker executes invocations in a throwaway container, using the
// environment name as the image. Containers are removed after each job.
type Docker struct {
	binary string
}

// NewDocker locates the docker binary and probes the daemon. Selection fails
// up front rather than on the first job so a missing or unresponsive docker
// aborts the run before any job starts.
func NewDocker() (Docker, error) {
	path, err := exec.LookPath("docker")
	if err != nil {
		return Docker{}, fmt.Errorf("docker not available: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, path, "version", "--format", "{{.Server.Version}}").Run(); err != nil {
		return Docker{}, fmt.Errorf("docker not responding: %w", err)
	}
	return Docker{binary: path}, nil
}

func (Docker) Manager() string { return "docker" }

func (d Docker) Run(ctx context.Context, env, invocation string, stdout, stderr io.Writer) (int, error) {
	return runCommand(ctx, stdout, stderr, d.binary, dockerArgs(env, invocation)...)
}

func dockerArgs(image, invocation string) []string {
	return []string{"run", "--rm", image, "sh", "-c", invocation}
}
