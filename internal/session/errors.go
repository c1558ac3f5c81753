package session

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRecording is returned by Start while a session exists.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrNotRecording is returned by Stop and TogglePause without a session.
	ErrNotRecording = errors.New("not recording")
	// ErrBusy is returned while a session is starting or stopping.
	ErrBusy = errors.New("recorder is starting or stopping")
	// ErrClosed is returned once the controller loop has exited.
	ErrClosed = errors.New("controller is not running")
)

// StartError reports a recorder that could not be launched or exited during
// the start probe.
type StartError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *StartError) Error() string {
	detail := e.Stderr
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}

	return fmt.Sprintf("failed to start recording: %s\nCommand: %s", detail, e.Command)
}

func (e *StartError) Unwrap() error {
	return e.Err
}
