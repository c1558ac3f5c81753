package tui

import (
	"github.com/alkime/screenrec/internal/session"
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings for the recorder panel.
type KeyMap struct {
	Start      key.Binding
	Stop       key.Binding
	Pause      key.Binding
	Area       key.Binding
	FullScreen key.Binding
	Audio      key.Binding
	FasterFPS  key.Binding
	SlowerFPS  key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Start: key.NewBinding(
			key.WithKeys("r", "enter"),
			key.WithHelp("r/enter", "start recording"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s", "enter"),
			key.WithHelp("s/enter", "stop recording"),
		),
		Pause: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "pause/resume"),
		),
		Area: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "select area"),
		),
		FullScreen: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "full screen"),
		),
		Audio: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "toggle audio"),
		),
		FasterFPS: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+/-", "framerate"),
		),
		SlowerFPS: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "lower framerate"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// forState enables only the bindings that make sense in st.
func (k KeyMap) forState(st session.State) KeyMap {
	idle := st == session.StateIdle
	live := st == session.StateRecording || st == session.StatePaused

	k.Start.SetEnabled(idle)
	k.Area.SetEnabled(idle)
	k.FullScreen.SetEnabled(idle)
	k.Audio.SetEnabled(idle)
	k.FasterFPS.SetEnabled(idle)
	k.SlowerFPS.SetEnabled(idle)
	k.Stop.SetEnabled(live)
	k.Pause.SetEnabled(live)

	return k
}

// ShortHelp returns the short help bindings.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Pause, k.Area, k.Help, k.Quit}
}

// FullHelp returns the full help bindings.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Stop, k.Pause},
		{k.Area, k.FullScreen},
		{k.Audio, k.FasterFPS},
		{k.Help, k.Quit},
	}
}
