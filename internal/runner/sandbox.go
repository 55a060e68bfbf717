package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const defaultKillGrace = 10 * time.Second

// OSExecutor runs commands on the local host. Each child gets its own process
// group so a timeout can signal everything it spawned.
type OSExecutor struct {
	// Timeout is the soft limit after which the process group gets SIGTERM.
	// Zero means the command may run forever.
	Timeout time.Duration
	// KillGrace is how long to wait after SIGTERM before SIGKILL.
	KillGrace time.Duration
}

func (e *OSExecutor) Run(ctx context.Context, name string, args []string) (*ExecResult, error) {
	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var timeout <-chan time.Time
	if e.Timeout > 0 {
		t := time.NewTimer(e.Timeout)
		defer t.Stop()
		timeout = t.C
	}

	var waitErr error
	select {
	case waitErr = <-waitCh:
	case <-ctx.Done():
		waitErr = e.stop(cmd.Process.Pid, waitCh)
	case <-timeout:
		waitErr = e.stop(cmd.Process.Pid, waitCh)
	}

	res := &ExecResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.ExitCode = exitCode(exitErr)
			return res, nil
		}
		return nil, waitErr
	}
	return res, nil
}

// stop terminates the process group: SIGTERM first, SIGKILL after the grace
// period.
func (e *OSExecutor) stop(pid int, waitCh <-chan error) error {
	grace := e.KillGrace
	if grace <= 0 {
		grace = defaultKillGrace
	}
	_ = unix.Kill(-pid, unix.SIGTERM)
	select {
	case err := <-waitCh:
		return err
	case <-time.After(grace):
		_ = unix.Kill(-pid, unix.SIGKILL)
		return <-waitCh
	}
}

func exitCode(ee *exec.ExitError) int {
	if status, ok := ee.Sys().(syscall.WaitStatus); ok {
		if status.Signaled() {
			return 128 + int(status.Signal())
		}
		return status.ExitStatus()
	}
	return 1
}
