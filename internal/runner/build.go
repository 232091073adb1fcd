package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	log "github.com/sirupsen/logrus"
)

// BuildSpec is the shell command producing the executable.
type BuildSpec struct {
	Command string
	Dir     string
	Env     []string
}

// EnsureExecutable runs the build command unless executable already exists
// (as a path, or on PATH for a bare name) or no command is configured. It
// reports whether a build ran.
func EnsureExecutable(ctx context.Context, executable string, build BuildSpec) (bool, error) {
	if _, err := exec.LookPath(executable); err == nil {
		log.WithField("executable", executable).Info("found prebuilt executable, skipping build")
		return false, nil
	}
	if build.Command == "" {
		return false, nil
	}

	log.WithField("command", build.Command).Info("building benchmark executable")
	cmd := exec.CommandContext(ctx, "sh", "-c", build.Command)
	cmd.Dir = build.Dir
	cmd.Env = append(os.Environ(), build.Env...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return false, fmt.Errorf("%w: %s: %s: %v", ErrBuild, build.Command, out, err)
	}
	return true, nil
}
