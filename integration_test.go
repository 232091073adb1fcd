//go:build integration

package main

import (
	"context"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalnine/phasebench/internal/config"
	"github.com/signalnine/phasebench/internal/report"
	"github.com/signalnine/phasebench/internal/runner"
)

// fakeBench prints a metrics block for every default phase. The second
// invocation exits non-zero.
const fakeBench = `#!/bin/sh
count_file="$(dirname "$0")/count"
n=$(( $(cat "$count_file" 2>/dev/null || echo 0) + 1 ))
echo "$n" > "$count_file"
[ "$n" -eq 2 ] && { echo "panicked at 'tensor shape mismatch'" >&2; exit 101; }
for header in "envload Metrics" "loadmodel Metrics" "readimg Metrics" "RED BOX Phase Metrics" \
	"Pre-processing Metrics" "Inference Metrics" "Post-processing Metrics" "GREEN BOX Phase Metrics" "Total Metrics"; do
	echo "============= $header ============="
	echo "Wall Clock Time: $(( n * 10 )).5ms"
	echo "User time: $(( n * 2 ))ms"
	echo "System time: 500µs"
	echo "Max RSS: $(( n * 1000 + 1 )) bytes"
	echo "CPU Usage: 80%"
	echo "======================================="
done
echo "Predicted Class Index: 281"
`

func TestEndToEnd(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh on PATH")
	}
	workDir := t.TempDir()
	exe := filepath.Join(workDir, "target", "rust-ml-benchmark")
	src := filepath.Join(workDir, "bench.sh")
	os.WriteFile(src, []byte(fakeBench), 0o755)

	cfg := config.Default()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	outcome, err := runner.Run(ctx, &runner.Options{
		Run: runner.RunContext{
			Executable: exe,
			ModelPath:  "models/resnet50.onnx",
			ImagePath:  "images/cat.jpg",
			Iterations: 3,
		},
		OutputDir:        filepath.Join(workDir, "bench"),
		Timestamped:      true,
		Phases:           cfg.Phases,
		TerminatorMinLen: cfg.TerminatorMinLen,
		Build: runner.BuildSpec{
			Command: "mkdir -p target && cp bench.sh target/rust-ml-benchmark",
			Dir:     workDir,
		},
		KeepOutput: true,
		Invoker:    &runner.LocalInvoker{Timeout: 10 * time.Second},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Completed != 2 || outcome.Failed != 1 {
		t.Errorf("completed/failed: got %d/%d, want 2/1", outcome.Completed, outcome.Failed)
	}
	if len(outcome.Summaries) != len(cfg.Phases) {
		t.Fatalf("expected %d summaries, got %d", len(cfg.Phases), len(outcome.Summaries))
	}
	for _, s := range outcome.Summaries {
		if s.Samples != 2 {
			t.Errorf("%s: got %d samples, want 2", s.ID, s.Samples)
		}
		// Iterations 1 and 3 contribute.
		if math.Abs(s.Mean.WallClockMs-20.5) > 1e-9 || math.Abs(s.Mean.UserTimeMs-4) > 1e-9 {
			t.Errorf("%s: unexpected mean %+v", s.ID, s.Mean)
		}
		if math.Abs(s.Mean.SystemTimeMs-0.5) > 1e-9 || s.Mean.MaxRSS != 2001 {
			t.Errorf("%s: unexpected mean %+v", s.ID, s.Mean)
		}
	}

	if _, err := os.Stat(filepath.Join(outcome.OutputDir, "raw", "iteration-3.txt")); err != nil {
		t.Errorf("raw output of iteration 3 missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outcome.OutputDir, "raw", "iteration-2.txt")); !os.IsNotExist(err) {
		t.Error("a failed iteration must not keep raw output")
	}

	latest, err := filepath.EvalSymlinks(filepath.Join(workDir, "bench", "latest"))
	if err != nil {
		t.Fatalf("resolving latest: %v", err)
	}
	stored, err := report.FromDir(latest, cfg.Phases)
	if err != nil {
		t.Fatalf("FromDir: %v", err)
	}
	for i, s := range stored {
		live := outcome.Summaries[i]
		if s.Samples != live.Samples || s.Mean.MaxRSS != live.Mean.MaxRSS ||
			math.Abs(s.Mean.WallClockMs-live.Mean.WallClockMs) > 1e-9 {
			t.Errorf("%s: stored %+v differs from live %+v", s.ID, s, live)
		}
	}
}
