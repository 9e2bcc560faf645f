// Package main implements the sweeprun CLI.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sweeprun/internal/environ"
	"sweeprun/internal/executor"
	"sweeprun/internal/sweep"
)

var (
	verbose bool
	logger  *zap.Logger

	cfgPath     string
	manager     string
	condaBinary string
	jobTimeout  time.Duration
	dryRun      bool
	failFast    bool
	confirm     bool
	reportPath  string
)

var rootCmd = &cobra.Command{
	Use:   "sweeprun",
	Short: "sweeprun - sequential training-sweep launcher",
	Long: `sweeprun launches the cross product of a seed list and a command list
as training jobs, one at a time, inside a named isolated environment.

For each seed (outer loop) and each command fragment (inner loop) it runs
"<command> --seed <seed>" and waits for the job to finish before starting
the next one.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run [environment] [commands-file] [seeds-file]",
	Short: "Run the sweep sequentially inside the named environment",
	Long: `Reads one command fragment per line from the commands file and one seed
per line from the seeds file, then executes every (seed, command) pair in
file order: seeds outer, commands inner. Jobs never overlap.

Example:
  sweeprun run training commands.txt seeds.txt --manager conda --report report.json`,
	Args: cobra.ExactArgs(3),
	RunE: runSweep,
}

var planCmd = &cobra.Command{
	Use:   "plan [commands-file] [seeds-file]",
	Short: "Print the job table without executing anything",
	Args:  cobra.ExactArgs(2),
	RunE:  planSweep,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	runCmd.Flags().StringVar(&cfgPath, "config", "", "YAML config file with run defaults")
	runCmd.Flags().StringVar(&manager, "manager", "conda", "environment manager: conda, docker or host")
	runCmd.Flags().StringVar(&condaBinary, "conda-bin", "", "conda binary to use for the conda manager")
	runCmd.Flags().DurationVar(&jobTimeout, "timeout", 0, "per-job timeout; 0 lets a hung job block the sweep")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "announce jobs without launching processes")
	runCmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop the sweep at the first failing job")
	runCmd.Flags().BoolVar(&confirm, "confirm", false, "ask for confirmation before the first job")
	runCmd.Flags().StringVar(&reportPath, "report", "", "write a JSON sweep report to this path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
}

func main() {
	// Optional; environment variables may be set directly.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	s, err := sweep.Load(args[0], args[1], args[2])
	if err != nil {
		return err
	}

	env, err := environ.Select(cfg.Manager, cfg.CondaBinary)
	if err != nil {
		return err
	}

	timeout, err := cfg.JobTimeout()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &executor.Runner{
		Sweep:  s,
		Env:    env,
		Logger: logger,
		Opts: executor.Options{
			DryRun:     dryRun,
			FailFast:   cfg.FailFast,
			Confirm:    confirm,
			Timeout:    timeout,
			ReportPath: cfg.Report,
		},
	}
	_, err = r.Run(ctx)
	return err
}

func planSweep(cmd *cobra.Command, args []string) error {
	s, err := sweep.Load("", args[0], args[1])
	if err != nil {
		return err
	}

	for _, job := range s.Jobs() {
		fmt.Printf("%4d  seed=%-12s %s\n", job.Index, job.Seed, job.Command)
	}
	fmt.Printf("%d seeds x %d commands = %d jobs\n", len(s.Seeds), len(s.Commands), s.JobCount())
	return nil
}

// loadRunConfig merges the config file (or built-in defaults) with any flags
// the user set explicitly; flags win.
func loadRunConfig(cmd *cobra.Command) (*sweep.Config, error) {
	var cfg *sweep.Config
	if cfgPath != "" {
		var err error
		cfg, err = sweep.LoadConfig(cfgPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = sweep.DefaultConfig()
	}

	if cmd.Flags().Changed("manager") {
		cfg.Manager = manager
	}
	if cmd.Flags().Changed("conda-bin") {
		cfg.CondaBinary = condaBinary
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = jobTimeout.String()
	}
	if cmd.Flags().Changed("fail-fast") {
		cfg.FailFast = failFast
	}
	if cmd.Flags().Changed("report") {
		cfg.Report = reportPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
