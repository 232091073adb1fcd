package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Invocation is one run of the benchmarked executable.
type Invocation struct {
	Iteration  int
	Executable string
	Args       []string
	// Env is added to the environment of the harness.
	Env []string
}

// Result is what an Invoker observed once the executable exited.
type Result struct {
	ExitCode int
	TimedOut bool
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Invoker runs the benchmarked executable and captures its output. An error
// means the executable could not be run at all; a non-zero ExitCode is not
// an error.
type Invoker interface {
	Invoke(ctx context.Context, inv *Invocation) (*Result, error)
}

// LocalInvoker runs the executable as a child process in the harness's
// working directory, the same directory EnsureExecutable resolves against.
type LocalInvoker struct {
	// Timeout bounds one invocation. Zero means no limit.
	Timeout time.Duration
}

func (l *LocalInvoker) Invoke(ctx context.Context, inv *Invocation) (*Result, error) {
	parent := ctx
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, inv.Executable, inv.Args...)
	cmd.Env = append(os.Environ(), inv.Env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("running %s: %w", inv.Executable, err)
		}
		res.ExitCode = exitErr.ExitCode()
		if parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.TimedOut = true
			res.ExitCode = 124
		}
	}
	return res, nil
}

func ExitReasonFromCode(code int, timedOut bool) string {
	if timedOut {
		return "timeout"
	}
	switch code {
	case 0:
		return "completed"
	case -1:
		return "killed"
	default:
		return "crashed"
	}
}
