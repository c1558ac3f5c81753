package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/alkime/screenrec/internal/procgroup"
)

// Process is a running recorder owned by one session.
type Process interface {
	// Interrupt asks the recorder to finalize its output and exit.
	Interrupt() error
	// Pause toggles the recorder's paused state.
	Pause() error
	// Kill terminates the recorder and its helpers immediately.
	Kill() error
	// Wait blocks until the recorder has exited.
	Wait() error
	// Stderr returns the most recent error output.
	Stderr() string
}

// Launcher starts recorder processes. argv[0] is the program.
type Launcher interface {
	Launch(argv []string) (Process, error)
}

// ExecLauncher runs the recorder as a child process in its own process group.
type ExecLauncher struct {
	// WaitDelay bounds how long Wait lingers on output pipes held open by
	// orphaned helpers once the recorder itself has exited.
	WaitDelay time.Duration
	Logger    *slog.Logger
}

var _ Launcher = (*ExecLauncher)(nil)

func (l *ExecLauncher) Launch(argv []string) (Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	//nolint:gosec // argv comes from the user's own settings
	cmd := exec.Command(argv[0], argv[1:]...)
	procgroup.Set(cmd)

	p := &execProcess{
		cmd:    cmd,
		stdout: newTailBuffer(tailSize),
		stderr: newTailBuffer(tailSize),
	}
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr
	cmd.WaitDelay = l.WaitDelay

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", argv[0], err)
	}

	logger.Debug("recorder launched", "pid", cmd.Process.Pid, "program", argv[0])

	return p, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout *tailBuffer
	stderr *tailBuffer
}

func (p *execProcess) Interrupt() error { return procgroup.Interrupt(p.cmd) }

func (p *execProcess) Pause() error { return procgroup.Pause(p.cmd) }

func (p *execProcess) Kill() error { return procgroup.Kill(p.cmd) }

func (p *execProcess) Wait() error { return p.cmd.Wait() }

func (p *execProcess) Stderr() string { return p.stderr.String() }
