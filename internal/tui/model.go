// Package tui is the terminal control panel for the recorder.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alkime/screenrec/internal/area"
	"github.com/alkime/screenrec/internal/session"
	"github.com/alkime/screenrec/internal/tui/components/labeledspinner"
	"github.com/alkime/screenrec/internal/tui/style"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Recorder is the session controller as seen by the panel.
type Recorder interface {
	Start(ctx context.Context) (session.Status, error)
	Stop(ctx context.Context) (session.Status, error)
	TogglePause(ctx context.Context) (session.Status, error)
	Status(ctx context.Context) (session.Status, error)
}

// Config wires the panel to the rest of the app.
type Config struct {
	Ctx      context.Context
	Cancel   context.CancelFunc
	Recorder Recorder
	Settings SettingsStore
	Picker   area.Selector
	// Events is a broadcaster subscription; closed when the app shuts down.
	Events <-chan session.Event
	Logger *slog.Logger
}

type action string

const (
	actionStart  action = "start"
	actionStop   action = "stop"
	actionPause  action = "pause"
	actionStatus action = "status"
)

type (
	eventMsg        struct{ ev session.Event }
	eventsClosedMsg struct{}
	actionMsg       struct {
		action action
		status session.Status
		err    error
	}
	areaMsg struct {
		geometry *string
		err      error
	}
)

// notice is the last outcome shown under the panel.
type notice struct {
	text  string
	style func(...string) string
}

type model struct {
	cfg     Config
	keys    KeyMap
	help    help.Model
	busy    labeledspinner.Model
	audio   audioKnob
	fps     framerateStepper
	status  session.Status
	notice  *notice
	picking bool
	closing bool
}

// New creates the panel model.
func New(cfg Config) tea.Model {
	if cfg.Ctx == nil {
		cfg.Ctx = context.Background()
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return model{
		cfg:    cfg,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		busy:   labeledspinner.New(spinner.Dot, "Starting"),
		audio:  audioKnob{store: cfg.Settings, logger: cfg.Logger},
		fps:    framerateStepper{store: cfg.Settings, logger: cfg.Logger},
		status: session.Status{State: session.StateIdle, Elapsed: session.FormatElapsed(0)},
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.busy.Init(),
		m.waitForEvent(),
		m.run(actionStatus, m.cfg.Recorder.Status),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case eventMsg:
		m = m.applyEvent(msg.ev)
		if msg.ev.Kind != session.KindStopped {
			return m, m.waitForEvent()
		}

		next, cmd := m.settle()

		return next, tea.Batch(cmd, m.waitForEvent())

	case eventsClosedMsg:
		m.cfg.Events = nil
		return m, nil

	case actionMsg:
		return m.applyAction(msg)

	case areaMsg:
		m.picking = false
		if msg.err != nil {
			m.notice = errorNotice(msg.err)
		} else {
			m.notice = &notice{text: area.Describe(msg.geometry), style: style.Muted.Render}
		}

		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.busy, cmd = m.busy.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.keys.forState(m.status.State)

	switch {
	case key.Matches(msg, keys.Quit):
		return m.quit()

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, keys.Start):
		m.status.State = session.StateStarting
		m.busy = m.busy.WithLabel("Starting", "")
		m.notice = nil

		return m, m.run(actionStart, m.cfg.Recorder.Start)

	case key.Matches(msg, keys.Stop):
		return m.stop()

	case key.Matches(msg, keys.Pause):
		return m, m.run(actionPause, m.cfg.Recorder.TogglePause)

	case key.Matches(msg, keys.Area):
		if m.picking || m.cfg.Picker == nil {
			return m, nil
		}

		m.picking = true
		m.notice = &notice{text: "Draw a region on screen...", style: style.Muted.Render}

		return m, m.selectArea()

	case key.Matches(msg, keys.FullScreen):
		if err := m.cfg.Settings.SetGeometry(nil); err != nil {
			m.notice = errorNotice(err)
		} else {
			m.notice = &notice{text: area.Describe(nil), style: style.Muted.Render}
		}

	case key.Matches(msg, keys.Audio):
		m.audio.Toggle()

	case key.Matches(msg, keys.FasterFPS):
		m.fps.Step(framerateStep)

	case key.Matches(msg, keys.SlowerFPS):
		m.fps.Step(-framerateStep)
	}

	return m, nil
}

// quit leaves at once when idle. A live session is stopped first so the
// file is finalized; a second quit does not wait.
func (m model) quit() (tea.Model, tea.Cmd) {
	if m.closing || m.status.State == session.StateIdle {
		return m.exit()
	}

	m.closing = true

	switch m.status.State {
	case session.StateRecording, session.StatePaused:
		return m.stop()
	default:
		// starting or stopping: finish when the controller settles
		return m, nil
	}
}

func (m model) exit() (tea.Model, tea.Cmd) {
	if m.cfg.Cancel != nil {
		m.cfg.Cancel()
	}

	return m, tea.Quit
}

func (m model) stop() (tea.Model, tea.Cmd) {
	m.status.State = session.StateStopping
	m.busy = m.busy.WithLabel("Stopping", "waiting for the recorder to finish")

	return m, m.run(actionStop, m.cfg.Recorder.Stop)
}

func (m model) applyAction(msg actionMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.cfg.Logger.Debug("recorder action failed", "action", msg.action, "error", msg.err)
		m.notice = errorNotice(msg.err)
	}

	// failed calls still report where the controller ended up
	elapsed := m.status.Elapsed
	m.status = msg.status
	if m.status.Elapsed == "" {
		m.status.Elapsed = elapsed
	}

	return m.settle()
}

func (m model) applyEvent(ev session.Event) model {
	switch ev.Kind {
	case session.KindStarted:
		m.status.State = session.StateRecording
		m.status.SessionID = ev.SessionID
		m.status.OutputPath = ev.OutputPath
		m.status.Elapsed = session.FormatElapsed(0)
		m.status.Paused = false
		m.notice = nil
	case session.KindPaused:
		m.status.Paused = ev.Paused
		if ev.Elapsed != "" {
			m.status.Elapsed = ev.Elapsed
		}
		if ev.Paused {
			m.status.State = session.StatePaused
		} else {
			m.status.State = session.StateRecording
		}
	case session.KindTick:
		m.status.Elapsed = ev.Elapsed
	case session.KindStopped:
		m.status = session.Status{State: session.StateIdle, Elapsed: m.status.Elapsed}
		// an abnormal end follows an error event; keep its stderr on screen
		if ev.Clean || m.notice == nil {
			m.notice = stoppedNotice(ev)
		}
	case session.KindError:
		m.notice = &notice{text: ev.Message, style: severityStyle(ev.Severity)}
	}

	return m
}

// settle finishes a pending quit once the controller is idle.
func (m model) settle() (tea.Model, tea.Cmd) {
	if !m.closing {
		return m, nil
	}

	switch m.status.State {
	case session.StateIdle:
		return m.exit()
	case session.StateRecording, session.StatePaused:
		return m.stop()
	default:
		return m, nil
	}
}

func (m model) run(act action, call func(context.Context) (session.Status, error)) tea.Cmd {
	ctx := m.cfg.Ctx

	return func() tea.Msg {
		status, err := call(ctx)
		return actionMsg{action: act, status: status, err: err}
	}
}

func (m model) selectArea() tea.Cmd {
	ctx := m.cfg.Ctx
	picker := m.cfg.Picker
	store := m.cfg.Settings

	return func() tea.Msg {
		geometry, err := area.Choose(ctx, picker, store)
		return areaMsg{geometry: geometry, err: err}
	}
}

func (m model) waitForEvent() tea.Cmd {
	events := m.cfg.Events
	if events == nil {
		return nil
	}

	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}

		return eventMsg{ev: ev}
	}
}

func (m model) View() string {
	var sb strings.Builder

	sb.WriteString(style.Title.Render("screenrec"))
	sb.WriteString("\n\n")
	sb.WriteString(m.headline())
	sb.WriteString("\n\n")
	sb.WriteString(style.Panel.Render(m.summary()))
	sb.WriteString("\n")

	if m.notice != nil {
		sb.WriteString("\n")
		sb.WriteString(m.notice.style(m.notice.text))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys.forState(m.status.State)))
	sb.WriteString("\n")

	return sb.String()
}

func (m model) headline() string {
	switch m.status.State {
	case session.StateStarting, session.StateStopping:
		return m.busy.View()
	case session.StateRecording:
		return style.Recording.Render("● Recording") + "  " + style.Subtitle.Render(m.status.Elapsed)
	case session.StatePaused:
		return style.Warning.Render("❚❚ Paused") + "  " + style.Subtitle.Render(m.status.Elapsed)
	default:
		return style.Subtitle.Render("Ready to record")
	}
}

func (m model) summary() string {
	s := m.cfg.Settings.Snapshot()

	audio := "off"
	if m.audio.Read() {
		audio = "on"
		if dev := strings.TrimSpace(s.AudioDevice); dev != "" {
			audio += " (" + dev + ")"
		}
	}

	framerate := "auto"
	if fps := m.fps.Read(); fps > 0 {
		framerate = fmt.Sprintf("%d fps", fps)
	}

	codec := s.Codec
	if codec == "" {
		codec = "recorder default"
	}

	output := s.OutputDirectory
	if m.status.OutputPath != "" {
		output = m.status.OutputPath
	}

	lines := []string{
		style.Label.Render("Capture:") + " " + area.Describe(s.Geometry),
		style.Label.Render("Audio:") + " " + audio,
		style.Label.Render("Framerate:") + " " + framerate,
		style.Label.Render("Codec:") + " " + codec,
		style.Label.Render("Output:") + " " + style.Muted.Render(output),
	}

	return strings.Join(lines, "\n")
}

func stoppedNotice(ev session.Event) *notice {
	switch {
	case !ev.Clean:
		return &notice{text: "Recording ended unexpectedly.", style: style.Error.Render}
	case ev.Warning != "":
		return &notice{text: ev.Warning, style: style.Warning.Render}
	default:
		return &notice{
			text:  fmt.Sprintf("Saved to %s (%s)", ev.OutputPath, session.FormatElapsed(ev.Duration)),
			style: style.Success.Render,
		}
	}
}

func errorNotice(err error) *notice {
	var startErr *session.StartError
	if errors.As(err, &startErr) {
		return &notice{text: startErr.Error(), style: style.Error.Render}
	}

	if errors.Is(err, area.ErrPickerNotFound) {
		return &notice{text: "Area picker not found; install slurp.", style: style.Warning.Render}
	}

	return &notice{text: err.Error(), style: style.Error.Render}
}

func severityStyle(sev session.Severity) func(...string) string {
	switch sev {
	case session.SeverityError:
		return style.Error.Render
	case session.SeverityWarning:
		return style.Warning.Render
	default:
		return style.Muted.Render
	}
}
