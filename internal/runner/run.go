package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/signalnine/phasebench/internal/config"
	"github.com/signalnine/phasebench/internal/metrics"
	"github.com/signalnine/phasebench/internal/phase"
	"github.com/signalnine/phasebench/internal/report"
	"github.com/signalnine/phasebench/internal/result"
)

var (
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrOutputDirectory  = errors.New("output directory unavailable")
	ErrSinkOpen         = errors.New("cannot open phase table")
	ErrBuild            = errors.New("build failed")
	// ErrInterrupted is returned when ctx is done before the last iteration.
	// Rows written so far are kept.
	ErrInterrupted = errors.New("run interrupted")
	// ErrInvocation marks an iteration that was skipped. Run never returns it.
	ErrInvocation = errors.New("invocation failed")
)

// RunContext is the state of one harness invocation.
type RunContext struct {
	Executable string
	ModelPath  string
	ImagePath  string
	Iterations int
	// Iteration is the 1-based index of the iteration in progress.
	Iteration int
}

func (rc *RunContext) Validate() error {
	if rc.Iterations <= 0 {
		return fmt.Errorf("%w: number of iterations must be a positive integer", ErrInvalidArguments)
	}
	if rc.ModelPath == "" || rc.ImagePath == "" {
		return fmt.Errorf("%w: model path and image path must not be empty", ErrInvalidArguments)
	}
	if rc.Executable == "" {
		return fmt.Errorf("%w: executable path must not be empty", ErrInvalidArguments)
	}
	return nil
}

// Args are the arguments passed to the executable on every iteration.
func (rc *RunContext) Args() []string {
	return []string{rc.ModelPath, rc.ImagePath}
}

// BuildEnv exposes the model and image paths to the build command.
func (rc *RunContext) BuildEnv() []string {
	return []string{"MODEL_PATH=" + rc.ModelPath, "IMAGE_PATH=" + rc.ImagePath}
}

type Options struct {
	Run              RunContext
	OutputDir        string
	Timestamped      bool
	Phases           []config.Phase
	Units            metrics.UnitTable
	TerminatorMinLen int
	Build            BuildSpec
	SkipBuild        bool
	KeepOutput       bool
	Env              []string
	Invoker          Invoker
}

// Outcome is what a finished run reports.
type Outcome struct {
	OutputDir string
	Completed int
	Failed    int
	Summaries []report.Summary
}

// Run executes the benchmark loop. Iterations whose invocation fails are
// logged and skipped; only the fatal error kinds are returned.
func Run(ctx context.Context, opts *Options) (*Outcome, error) {
	rc := opts.Run
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if opts.Invoker == nil {
		return nil, fmt.Errorf("%w: no invoker configured", ErrInvalidArguments)
	}

	outDir, err := result.PrepareDir(opts.OutputDir, opts.Timestamped)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputDirectory, err)
	}

	trackers, closeAll, err := openTrackers(outDir, opts.Phases)
	if err != nil {
		return nil, err
	}
	defer closeAll()

	if !opts.SkipBuild {
		build := opts.Build
		build.Env = append(append([]string{}, opts.Env...), rc.BuildEnv()...)
		if _, err := EnsureExecutable(ctx, rc.Executable, build); err != nil {
			return nil, err
		}
	}

	router := phase.NewRouter(metrics.NewParser(opts.Units, opts.TerminatorMinLen), trackers...)
	out := &Outcome{OutputDir: outDir}

	for i := 1; i <= rc.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w after %d of %d iterations: %w", ErrInterrupted, i-1, rc.Iterations, err)
		}
		rc.Iteration = i
		fields := log.Fields{"iteration": i, "of": rc.Iterations}
		log.WithFields(fields).Info("running iteration")

		err := runIteration(ctx, opts, &rc, router, outDir)
		if ctx.Err() != nil {
			// The invocation was cut short by the interrupt, not by the executable.
			return nil, fmt.Errorf("%w during iteration %d of %d: %w", ErrInterrupted, i, rc.Iterations, ctx.Err())
		}
		if errors.Is(err, ErrInvocation) {
			log.WithFields(fields).Warnf("skipping iteration: %v", err)
			out.Failed++
			continue
		}
		if err != nil {
			return nil, err
		}
		out.Completed++
	}

	if err := closeAll(); err != nil {
		return nil, err
	}
	for _, t := range trackers {
		out.Summaries = append(out.Summaries, report.Summary{
			ID:         t.ID,
			Name:       t.Name,
			Samples:    t.Average().Count(),
			Incomplete: t.Incomplete(),
			Mean:       t.Average().Mean(),
		})
	}
	return out, nil
}

func runIteration(ctx context.Context, opts *Options, rc *RunContext, router *phase.Router, outDir string) error {
	res, err := opts.Invoker.Invoke(ctx, &Invocation{
		Iteration:  rc.Iteration,
		Executable: rc.Executable,
		Args:       rc.Args(),
		Env:        opts.Env,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvocation, err)
	}
	if res.ExitCode != 0 || res.TimedOut {
		if len(res.Stderr) > 0 {
			log.WithField("iteration", rc.Iteration).Debugf("stderr:\n%s", tail(res.Stderr, 2048))
		}
		return fmt.Errorf("%w: %s (exit code %d)", ErrInvocation, ExitReasonFromCode(res.ExitCode, res.TimedOut), res.ExitCode)
	}

	if opts.KeepOutput {
		if err := result.WriteRawOutput(outDir, rc.Iteration, res.Stdout); err != nil {
			log.WithField("iteration", rc.Iteration).Warnf("keeping raw output: %v", err)
		}
	}

	stats, err := router.Route(bytes.NewReader(res.Stdout))
	if errors.Is(err, phase.ErrUnreadableOutput) {
		return fmt.Errorf("%w: %v", ErrInvocation, err)
	}
	if err != nil {
		return fmt.Errorf("writing samples: %w", err)
	}
	for id, n := range stats.Incomplete {
		log.WithFields(log.Fields{"iteration": rc.Iteration, "phase": id, "blocks": n}).Debug("incomplete blocks discarded")
	}
	log.WithFields(log.Fields{"iteration": rc.Iteration, "duration": res.Duration}).Debugf("accepted samples: %v", stats.Accepted)
	return nil
}

// openTrackers creates one table per phase. The returned close function is
// safe to call more than once and reports the first close error.
func openTrackers(outDir string, phases []config.Phase) ([]*phase.Tracker, func() error, error) {
	var tables []*result.Table
	closed := false
	closeAll := func() error {
		if closed {
			return nil
		}
		closed = true
		var first error
		for _, tbl := range tables {
			if err := tbl.Close(); err != nil && first == nil {
				first = fmt.Errorf("closing phase table: %w", err)
			}
		}
		return first
	}

	trackers := make([]*phase.Tracker, 0, len(phases))
	for _, p := range phases {
		tbl, err := result.CreateTable(filepath.Join(outDir, p.File))
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("%w: %v", ErrSinkOpen, err)
		}
		tables = append(tables, tbl)
		trackers = append(trackers, &phase.Tracker{ID: p.ID, Name: p.Name, Header: p.Header, Sink: tbl})
	}
	return trackers, closeAll, nil
}

func tail(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}
