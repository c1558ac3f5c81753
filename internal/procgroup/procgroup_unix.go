//go:build unix

package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
)

func set(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

func interrupt(cmd *exec.Cmd) error { return Signal(cmd, syscall.SIGINT) }

func pause(cmd *exec.Cmd) error { return Signal(cmd, syscall.SIGUSR1) }

func kill(cmd *exec.Cmd) error { return Signal(cmd, syscall.SIGKILL) }

// Signal sends sig to the process group led by cmd. A process that has
// already exited is not an error. When the group cannot be signalled the
// leader alone is tried.
func Signal(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	pid := cmd.Process.Pid

	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}

		return err
	}

	// only signal a group we lead, never our own
	if pgid != pid {
		return ignoreDone(cmd.Process.Signal(sig))
	}

	if err := syscall.Kill(-pgid, sig); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}

		return ignoreDone(cmd.Process.Signal(sig))
	}

	return nil
}
