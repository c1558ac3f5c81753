// Package procgroup starts child processes in their own process group and
// signals the whole group, so helpers spawned by the recorder go down with it.
package procgroup

import (
	"errors"
	"os"
	"os/exec"
)

// Set configures cmd to start as the leader of a new process group.
// Signals only reach helpers when the command was started this way.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Interrupt asks the group to finish cleanly (SIGINT).
func Interrupt(cmd *exec.Cmd) error {
	return interrupt(cmd)
}

// Pause toggles the recorder between paused and recording (SIGUSR1).
func Pause(cmd *exec.Cmd) error {
	return pause(cmd)
}

// Kill terminates the group immediately (SIGKILL).
func Kill(cmd *exec.Cmd) error {
	return kill(cmd)
}

func ignoreDone(err error) error {
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}

	return err
}
