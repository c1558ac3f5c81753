//go:build !unix

package procgroup

import (
	"errors"
	"os"
	"os/exec"
)

func set(*exec.Cmd) {}

func interrupt(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	return ignoreDone(cmd.Process.Signal(os.Interrupt))
}

func pause(*exec.Cmd) error {
	return errors.ErrUnsupported
}

func kill(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	return ignoreDone(cmd.Process.Kill())
}
