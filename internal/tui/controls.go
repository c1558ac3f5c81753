package tui

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/alkime/screenrec/internal/command"
	"github.com/alkime/screenrec/internal/settings"
	"github.com/alkime/screenrec/pkg/uictl"
)

const (
	minFramerate  = 1
	maxFramerate  = 240
	framerateStep = 5
)

// SettingsStore is the part of the settings store the panel edits.
type SettingsStore interface {
	Snapshot() settings.Settings
	Update(fn func(*settings.Settings)) error
	SetGeometry(geometry *string) error
}

// audioKnob switches audio capture on and off in the persisted settings.
type audioKnob struct {
	store  SettingsStore
	logger *slog.Logger
}

var _ uictl.Knob = audioKnob{}

func (k audioKnob) Read() bool {
	return k.store.Snapshot().AudioEnabled
}

func (k audioKnob) On() { k.set(true) }

func (k audioKnob) Off() { k.set(false) }

func (k audioKnob) Toggle() { k.set(!k.Read()) }

func (k audioKnob) set(on bool) {
	err := k.store.Update(func(s *settings.Settings) { s.AudioEnabled = on })
	if err != nil {
		k.logger.Error("failed to save audio setting", "error", err)
	}
}

// framerateStepper nudges the framerate setting. A value the command
// builder would not pass on reads as 0 and the recorder picks its own rate.
type framerateStepper struct {
	store  SettingsStore
	logger *slog.Logger
}

var _ uictl.Stepper[int] = framerateStepper{}

func (f framerateStepper) Read() int {
	value := f.store.Snapshot().Framerate
	if !command.ValidFramerate(value) {
		return 0
	}

	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}

	return n
}

func (f framerateStepper) Step(delta int) {
	current := f.Read()
	if current == 0 {
		current = 30
	}

	next := uictl.Clamp(current+delta, minFramerate, maxFramerate)

	err := f.store.Update(func(s *settings.Settings) { s.Framerate = strconv.Itoa(next) })
	if err != nil {
		f.logger.Error("failed to save framerate", "error", err)
	}
}
