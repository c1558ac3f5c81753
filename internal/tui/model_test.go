package tui

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alkime/screenrec/internal/session"
	"github.com/alkime/screenrec/internal/settings"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:gochecknoinits // recommend for CI by bubbletea folks
func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// outputChecker provides helpers for testing teatest output.
type outputChecker struct {
	intervl, timeout time.Duration
}

func defaultChecker() outputChecker {
	return outputChecker{
		intervl: 100 * time.Millisecond,
		timeout: 3 * time.Second,
	}
}

func (o outputChecker) checkString(t *testing.T, tm *teatest.TestModel, substr string) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), func(buf []byte) bool {
		return bytes.Contains(buf, []byte(substr))
	},
		teatest.WithCheckInterval(o.intervl),
		teatest.WithDuration(o.timeout))
}

// fakeRecorder mimics the controller: it answers calls and publishes the
// matching events.
type fakeRecorder struct {
	mu       sync.Mutex
	state    session.State
	events   chan session.Event
	startErr error
	calls    []action
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{events: make(chan session.Event, 16)}
}

func (f *fakeRecorder) record(a action) {
	f.calls = append(f.calls, a)
}

func (f *fakeRecorder) Calls() []action {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]action(nil), f.calls...)
}

func (f *fakeRecorder) Start(context.Context) (session.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(actionStart)

	if f.startErr != nil {
		f.events <- session.Event{Kind: session.KindError, Message: "wf-recorder: no outputs", Severity: session.SeverityError}
		return session.Status{State: session.StateIdle}, f.startErr
	}

	f.state = session.StateRecording
	f.events <- session.Event{Kind: session.KindStarted, SessionID: "s1", OutputPath: "/videos/Recording_1.mp4"}

	return f.status(), nil
}

func (f *fakeRecorder) Stop(context.Context) (session.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(actionStop)

	if !f.state.Active() {
		return f.status(), session.ErrNotRecording
	}

	f.state = session.StateIdle
	f.events <- session.Event{
		Kind:       session.KindStopped,
		SessionID:  "s1",
		OutputPath: "/videos/Recording_1.mp4",
		Clean:      true,
		Duration:   5 * time.Second,
	}

	return f.status(), nil
}

func (f *fakeRecorder) TogglePause(context.Context) (session.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(actionPause)

	paused := f.state == session.StateRecording
	if paused {
		f.state = session.StatePaused
	} else {
		f.state = session.StateRecording
	}
	f.events <- session.Event{Kind: session.KindPaused, SessionID: "s1", Paused: paused}

	return f.status(), nil
}

func (f *fakeRecorder) Status(context.Context) (session.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.status(), nil
}

func (f *fakeRecorder) status() session.Status {
	st := session.Status{State: f.state, Elapsed: "00:00:05", Paused: f.state == session.StatePaused}
	if f.state.Active() {
		st.SessionID = "s1"
		st.OutputPath = "/videos/Recording_1.mp4"
	}

	return st
}

type fakePicker struct {
	geometry string
	ok       bool
	err      error
}

func (p fakePicker) Select(context.Context) (string, bool, error) {
	return p.geometry, p.ok, p.err
}

func newTestModel(
	t *testing.T,
	rec *fakeRecorder,
	picker fakePicker,
	setup ...func(*settings.Settings),
) (*teatest.TestModel, *settings.Store) {
	t.Helper()

	store := settings.Open(filepath.Join(t.TempDir(), "settings.json"), nil)
	require.NoError(t, store.Update(func(s *settings.Settings) {
		s.OutputDirectory = "/videos"
		for _, fn := range setup {
			fn(s)
		}
	}))

	m := New(Config{
		Recorder: rec,
		Settings: store,
		Picker:   picker,
		Events:   rec.events,
	})

	return teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 30)), store
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_RecordPauseStop(t *testing.T) {
	checker := defaultChecker()
	rec := newFakeRecorder()
	tm, _ := newTestModel(t, rec, fakePicker{})

	checker.checkString(t, tm, "Ready to record")

	tm.Send(keyPress("r"))
	checker.checkString(t, tm, "Recording_1.mp4")

	rec.events <- session.Event{Kind: session.KindTick, SessionID: "s1", Elapsed: "00:00:42"}
	checker.checkString(t, tm, "00:00:42")

	tm.Send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	checker.checkString(t, tm, "Paused")

	tm.Send(keyPress("p"))
	checker.checkString(t, tm, "Recording")

	tm.Send(keyPress("s"))
	checker.checkString(t, tm, "Saved to /videos/Recording_1.mp4 (00:00:05)")

	tm.Send(keyPress("q"))
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	assert.Equal(t, []action{actionStart, actionPause, actionPause, actionStop}, rec.Calls())
}

func TestModel_StartFailureShowsStderr(t *testing.T) {
	checker := defaultChecker()
	rec := newFakeRecorder()
	rec.startErr = &session.StartError{
		Command: "wf-recorder -f /videos/x.mp4",
		Stderr:  "wf-recorder: no outputs",
	}
	tm, _ := newTestModel(t, rec, fakePicker{})

	checker.checkString(t, tm, "Ready to record")
	tm.Send(keyPress("r"))
	checker.checkString(t, tm, "no outputs")

	tm.Send(keyPress("q"))
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	final, ok := tm.FinalModel(t).(model)
	require.True(t, ok)
	assert.Equal(t, session.StateIdle, final.status.State)
}

func TestModel_QuitWhileRecordingStopsFirst(t *testing.T) {
	checker := defaultChecker()
	rec := newFakeRecorder()
	tm, _ := newTestModel(t, rec, fakePicker{})

	checker.checkString(t, tm, "Ready to record")
	tm.Send(keyPress("r"))
	checker.checkString(t, tm, "Recording_1.mp4")

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	assert.Equal(t, []action{actionStart, actionStop}, rec.Calls())
}

func TestModel_SettingsControls(t *testing.T) {
	checker := defaultChecker()
	rec := newFakeRecorder()
	tm, store := newTestModel(t, rec, fakePicker{geometry: "10,20 300x200", ok: true})

	checker.checkString(t, tm, "30 fps")

	tm.Send(keyPress("+"))
	checker.checkString(t, tm, "35 fps")

	tm.Send(keyPress("m"))
	checker.checkString(t, tm, "Audio: off")

	tm.Send(keyPress("a"))
	checker.checkString(t, tm, "Area: 10,20 300x200")

	tm.Send(keyPress("q"))
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	snap := store.Snapshot()
	assert.Equal(t, "35", snap.Framerate)
	assert.False(t, snap.AudioEnabled)
	require.NotNil(t, snap.Geometry)
	assert.Equal(t, "10,20 300x200", *snap.Geometry)
	assert.Empty(t, rec.Calls(), "settings keys never touch the recorder")
}

func TestModel_CancelledAreaResetsToFullScreen(t *testing.T) {
	checker := defaultChecker()
	rec := newFakeRecorder()
	geom := "1,1 5x5"
	tm, store := newTestModel(t, rec, fakePicker{ok: false}, func(s *settings.Settings) { s.Geometry = &geom })

	checker.checkString(t, tm, "Area: 1,1 5x5")
	tm.Send(keyPress("a"))
	checker.checkString(t, tm, "Full Screen")

	tm.Send(keyPress("q"))
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	assert.Nil(t, store.Snapshot().Geometry)
}

func TestModel_AbnormalEndKeepsError(t *testing.T) {
	checker := defaultChecker()
	rec := newFakeRecorder()
	tm, _ := newTestModel(t, rec, fakePicker{})

	checker.checkString(t, tm, "Ready to record")
	tm.Send(keyPress("r"))
	checker.checkString(t, tm, "Recording_1.mp4")

	rec.events <- session.Event{Kind: session.KindError, SessionID: "s1", Message: "compositor went away", Severity: session.SeverityError}
	rec.events <- session.Event{Kind: session.KindStopped, SessionID: "s1", Clean: false}
	checker.checkString(t, tm, "compositor went away")

	tm.Send(keyPress("q"))
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	final, ok := tm.FinalModel(t).(model)
	require.True(t, ok)
	assert.Equal(t, session.StateIdle, final.status.State)
	require.NotNil(t, final.notice)
	assert.Equal(t, "compositor went away", final.notice.text)
}

func TestFramerateStepper(t *testing.T) {
	store := settings.Open(filepath.Join(t.TempDir(), "settings.json"), nil)
	f := framerateStepper{store: store, logger: slog.New(slog.DiscardHandler)}

	for _, v := range []string{"thirty", "+30", "-0", " 29.97"} {
		require.NoError(t, store.Set("framerate", v))
		assert.Equal(t, 0, f.Read(), "framerate %q is not passed to the recorder", v)
	}

	require.NoError(t, store.Set("framerate", " 48 "))
	assert.Equal(t, 48, f.Read())

	require.NoError(t, store.Set("framerate", "238"))
	f.Step(framerateStep)
	assert.Equal(t, maxFramerate, f.Read())

	require.NoError(t, store.Set("framerate", "3"))
	f.Step(-framerateStep)
	assert.Equal(t, minFramerate, f.Read())
}
