package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/signalnine/phasebench/internal/config"
	"github.com/signalnine/phasebench/internal/docker"
	"github.com/signalnine/phasebench/internal/report"
	"github.com/signalnine/phasebench/internal/runner"
)

var (
	flagExecutable string
	flagExecutor   string
	flagSkipBuild  bool
	flagKeepOutput bool
)

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagExecutable, "executable", "", "benchmark executable (overrides executable)")
	cmd.Flags().StringVar(&flagExecutor, "executor", "", "where to run the executable (local, docker)")
	cmd.Flags().BoolVar(&flagSkipBuild, "skip-build", false, "never run the build command")
	cmd.Flags().BoolVar(&flagKeepOutput, "keep-output", false, "store the raw output of every iteration")
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	iterations, err := parseIterations(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyRunFlags(cfg)

	rc := runner.RunContext{Executable: cfg.Executable, ModelPath: args[1], ImagePath: args[2], Iterations: iterations}
	if err := rc.Validate(); err != nil {
		return err
	}
	// Anything failing from here on is not a usage error.
	cmd.SilenceUsage = true

	phases, err := selectedPhases(cfg)
	if err != nil {
		return err
	}
	units, err := cfg.UnitTable()
	if err != nil {
		return err
	}

	var env []string
	if cfg.EnvFile != "" {
		env, err = config.ParseEnvFile(cfg.EnvFile)
		if err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
	}

	invoker, err := newInvoker(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outcome, err := runner.Run(ctx, &runner.Options{
		Run:              rc,
		OutputDir:        outputDir(cfg),
		Timestamped:      cfg.Results.Timestamped,
		Phases:           phases,
		Units:            units,
		TerminatorMinLen: cfg.TerminatorMinLen,
		Build:            runner.BuildSpec{Command: cfg.Build.Command, Dir: cfg.Build.Dir},
		// The docker image ships its own executable.
		SkipBuild:  flagSkipBuild || cfg.Executor.Kind == config.ExecutorDocker,
		KeepOutput: cfg.KeepOutput,
		Env:        env,
		Invoker:    invoker,
	})
	if err != nil {
		return err
	}

	if err := report.Write(outcome.Summaries, flagFormat, os.Stdout); err != nil {
		return err
	}
	line := green
	if outcome.Failed > 0 {
		line = yellow
	}
	line.Fprintf(os.Stderr, "Benchmark completed: %d of %d iterations succeeded. Results in %s\n",
		outcome.Completed, iterations, outcome.OutputDir)
	return nil
}

func applyRunFlags(cfg *config.Config) {
	if flagExecutable != "" {
		cfg.Executable = flagExecutable
	}
	if flagExecutor != "" {
		cfg.Executor.Kind = flagExecutor
	}
	if flagKeepOutput {
		cfg.KeepOutput = true
	}
}

func newInvoker(cfg *config.Config) (runner.Invoker, error) {
	switch cfg.Executor.Kind {
	case config.ExecutorLocal, "":
		return &runner.LocalInvoker{Timeout: cfg.Executor.Timeout}, nil
	case config.ExecutorDocker:
		if cfg.Executor.Image == "" {
			return nil, fmt.Errorf("%w: the docker executor needs executor.image", runner.ErrInvalidArguments)
		}
		mounts := make([]docker.Mount, 0, len(cfg.Executor.Mounts))
		for _, m := range cfg.Executor.Mounts {
			mounts = append(mounts, docker.Mount{Source: m.Source, Target: m.Target, ReadOnly: m.ReadOnly})
		}
		log.WithField("image", cfg.Executor.Image).Info("running iterations in docker")
		return &docker.Invoker{Image: cfg.Executor.Image, Mounts: mounts, Timeout: cfg.Executor.Timeout}, nil
	default:
		return nil, fmt.Errorf("%w: unknown executor %q", runner.ErrInvalidArguments, cfg.Executor.Kind)
	}
}

func parseIterations(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: number of iterations must be a positive integer, got %q", runner.ErrInvalidArguments, s)
	}
	return n, nil
}

// filterPhases keeps the phases named in a comma separated id list, in
// configuration order. An empty list keeps all of them.
func filterPhases(phases []config.Phase, ids string) ([]config.Phase, error) {
	if strings.TrimSpace(ids) == "" {
		return phases, nil
	}
	known := map[string]bool{}
	for _, p := range phases {
		known[p.ID] = true
	}
	want := map[string]bool{}
	for _, id := range strings.Split(ids, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !known[id] {
			return nil, fmt.Errorf("unknown phase %q", id)
		}
		want[id] = true
	}
	var filtered []config.Phase
	for _, p := range phases {
		if want[p.ID] {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}
