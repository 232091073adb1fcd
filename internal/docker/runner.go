// Package docker runs the benchmarked executable inside a container.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
	log "github.com/sirupsen/logrus"

	"github.com/signalnine/phasebench/internal/runner"
)

type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// Invoker starts one container per iteration from Image. The executable and
// the model and image paths are resolved inside the container.
type Invoker struct {
	Image   string
	WorkDir string
	Mounts  []Mount
	// Timeout bounds one container run. Zero means no limit.
	Timeout time.Duration
}

var _ runner.Invoker = (*Invoker)(nil)

func (d *Invoker) Invoke(ctx context.Context, inv *runner.Invocation) (*runner.Result, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	mounts := make([]mount.Mount, 0, len(d.Mounts))
	for _, m := range d.Mounts {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: mounts,
		Init:   &initTrue,
	}
	// A TTY keeps the log stream unmultiplexed, stdout and stderr interleaved.
	containerCfg := &container.Config{
		Image:      d.Image,
		Cmd:        append([]string{inv.Executable}, inv.Args...),
		Env:        inv.Env,
		WorkingDir: d.WorkDir,
		Tty:        true,
		Labels:     map[string]string{"phasebench": "true", "phasebench.iteration": fmt.Sprint(inv.Iteration)},
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}
	containerID := createResp.ID
	defer func() {
		cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	start := time.Now()
	if _, err := cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	waitCtx := ctx
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	waitResult := cli.ContainerWait(waitCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	for {
		select {
		case err := <-waitResult.Error:
			if err != nil {
				cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
				if !isTimeout(ctx, waitCtx) {
					return nil, fmt.Errorf("waiting for container %s: %w", shortID(containerID), err)
				}
				log.WithFields(log.Fields{"container": shortID(containerID), "iteration": inv.Iteration}).
					Warnf("container timed out after %v", d.Timeout)
				return &runner.Result{
					ExitCode: 124,
					TimedOut: true,
					Stdout:   collectLogs(cli, containerID),
					Duration: time.Since(start),
				}, nil
			}
			// nil error means no error on this channel; wait for result
		case status := <-waitResult.Result:
			return &runner.Result{
				ExitCode: int(status.StatusCode),
				Stdout:   collectLogs(cli, containerID),
				Duration: time.Since(start),
			}, nil
		}
	}
}

// isTimeout reports whether the wait ended because the per-run deadline
// passed, as opposed to the caller giving up.
func isTimeout(parent, wait context.Context) bool {
	return parent.Err() == nil && errors.Is(wait.Err(), context.DeadlineExceeded)
}

// collectLogs returns the container output with TTY line endings undone.
func collectLogs(cli *client.Client, containerID string) []byte {
	logReader, err := cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		log.WithField("container", shortID(containerID)).Warnf("reading container logs: %v", err)
		return nil
	}
	defer logReader.Close()
	data, _ := io.ReadAll(logReader)
	return bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
