// Package sweep models a parameter sweep: the cross product of a seed list
// and a command list, launched inside a named environment.
package sweep

import (
	"bufio"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Sweep holds the loaded inputs for one run. Seeds and Commands are
// read-only after Load; order follows file order.
type Sweep struct {
	RunID        string
	Environment  string
	CommandsFile string
	SeedsFile    string
	Commands     []string
	Seeds        []string
}

// Job is one (seed, command) pairing. It exists only for the duration of a
// single iteration and is never persisted outside the run report.
type Job struct {
	Index   int
	Seed    string
	Command string
}

// Invocation returns the shell fragment executed for this job.
func (j Job) Invocation() string {
	return fmt.Sprintf("%s --seed %s", j.Command, j.Seed)
}

// Load reads both input files and assigns a fresh run ID. A missing or
// unreadable file fails the whole load, before any job can execute.
func Load(environment, commandsFile, seedsFile string) (*Sweep, error) {
	commands, err := readLines(commandsFile)
	if err != nil {
		return nil, fmt.Errorf("read commands file: %w", err)
	}
	seeds, err := readLines(seedsFile)
	if err != nil {
		return nil, fmt.Errorf("read seeds file: %w", err)
	}

	return &Sweep{
		RunID:        uuid.New().String(),
		Environment:  environment,
		CommandsFile: commandsFile,
		SeedsFile:    seedsFile,
		Commands:     commands,
		Seeds:        seeds,
	}, nil
}

// Jobs materializes the cross product with seeds as the outer dimension and
// commands as the inner one, in file order.
func (s *Sweep) Jobs() []Job {
	jobs := make([]Job, 0, s.JobCount())
	for _, seed := range s.Seeds {
		for _, command := range s.Commands {
			jobs = append(jobs, Job{
				Index:   len(jobs),
				Seed:    seed,
				Command: command,
			})
		}
	}
	return jobs
}

func (s *Sweep) JobCount() int {
	return len(s.Seeds) * len(s.Commands)
}

// readLines returns the file's lines verbatim: no trimming, blank interior
// lines survive as empty values. A trailing newline does not add a line.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return lines, nil
}
