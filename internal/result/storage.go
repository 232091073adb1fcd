// Package result lays out the output directory and writes phase tables.
package result

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PrepareDir makes sure the output directory exists and returns the
// directory tables should be written to. With timestamped set it is a fresh
// run directory created by CreateRunDir.
func PrepareDir(dir string, timestamped bool) (string, error) {
	if timestamped {
		return CreateRunDir(dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving output dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	return abs, nil
}

// CreateRunDir creates baseDir/runs/<UTC stamp> and points baseDir/latest at it.
func CreateRunDir(baseDir string) (string, error) {
	runsDir := filepath.Join(baseDir, "runs")
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runDir := filepath.Join(runsDir, stamp)
	runDir, err := filepath.Abs(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

// RawOutputPath is where the captured output of an iteration is kept.
func RawOutputPath(runDir string, iteration int) string {
	return filepath.Join(runDir, "raw", fmt.Sprintf("iteration-%d.txt", iteration))
}

// WriteRawOutput stores the captured output of an iteration.
func WriteRawOutput(runDir string, iteration int, data []byte) error {
	path := RawOutputPath(runDir, iteration)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating raw output dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
