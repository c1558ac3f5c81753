// Package session supervises one wf-recorder process at a time: it starts
// it from the current settings, tracks elapsed time across pauses, notices
// when it dies on its own, and stops it with a bounded wait before killing.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alkime/screenrec/internal/command"
	"github.com/alkime/screenrec/internal/settings"
	"github.com/google/uuid"
)

const unexpectedExitMessage = "Recording ended unexpectedly."

// SettingsSource provides the settings a new session records with.
type SettingsSource interface {
	Snapshot() settings.Settings
}

// Options tune the controller. Zero durations fall back to the defaults.
type Options struct {
	RecorderBin  string
	StartProbe   time.Duration
	StopGrace    time.Duration
	KillTimeout  time.Duration
	TickInterval time.Duration

	Launcher Launcher
	Now      func() time.Time
	Logger   *slog.Logger
}

const (
	DefaultRecorderBin  = "wf-recorder"
	DefaultStartProbe   = 500 * time.Millisecond
	DefaultStopGrace    = 5 * time.Second
	DefaultKillTimeout  = 2 * time.Second
	DefaultTickInterval = time.Second
)

func (o *Options) applyDefaults() {
	if o.RecorderBin == "" {
		o.RecorderBin = DefaultRecorderBin
	}
	if o.StartProbe < 0 {
		o.StartProbe = 0
	}
	if o.StopGrace <= 0 {
		o.StopGrace = DefaultStopGrace
	}
	if o.KillTimeout <= 0 {
		o.KillTimeout = DefaultKillTimeout
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Launcher == nil {
		o.Launcher = &ExecLauncher{WaitDelay: o.KillTimeout, Logger: o.Logger}
	}
}

type op int

const (
	opStart op = iota
	opStop
	opPause
	opStatus
)

type response struct {
	status Status
	err    error
}

type request struct {
	op    op
	reply chan response
}

type recording struct {
	id      string
	proc    Process
	command string
	output  string

	// pause-adjusted start; elapsed is now minus started
	started  time.Time
	pausedAt time.Time
	paused   bool
	forced   bool

	exit    chan error
	pending chan response
}

// Controller owns the recorder process. All state lives on the goroutine
// running Run; the exported methods post requests to it.
type Controller struct {
	opts     Options
	settings SettingsSource
	events   chan<- Event
	logger   *slog.Logger

	requests chan request
	done     chan struct{}
	running  atomic.Bool
	waiters  sync.WaitGroup

	// owned by the loop
	state  State
	rec    *recording
	ticker *time.Ticker
	phase  *time.Timer
}

// New returns a controller that records with snapshots from src and
// publishes events on events. A nil events channel discards them.
func New(src SettingsSource, events chan<- Event, opts Options) *Controller {
	opts.applyDefaults()

	return &Controller{
		opts:     opts,
		settings: src,
		events:   events,
		logger:   opts.Logger,
		requests: make(chan request),
		done:     make(chan struct{}),
	}
}

// Run processes requests until ctx is done. A live session is stopped
// gracefully before Run returns. Run may only be called once.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("controller already running")
	}

	defer close(c.done)
	defer c.waiters.Wait()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil

		case req := <-c.requests:
			c.handle(req)

		case err := <-c.exitC():
			c.handleExit(err)

		case <-c.tickC():
			c.publish(Event{Kind: KindTick, SessionID: c.rec.id, Elapsed: FormatElapsed(c.elapsed())})

		case <-c.phaseC():
			c.phase = nil
			c.handlePhaseTimeout()
		}
	}
}

// Start launches a recording with the current settings.
func (c *Controller) Start(ctx context.Context) (Status, error) {
	return c.do(ctx, opStart)
}

// Stop interrupts the recorder and waits for it, killing it after the grace
// period.
func (c *Controller) Stop(ctx context.Context) (Status, error) {
	return c.do(ctx, opStop)
}

// TogglePause pauses a running recording or resumes a paused one.
func (c *Controller) TogglePause(ctx context.Context) (Status, error) {
	return c.do(ctx, opPause)
}

// Status reports the current state.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	return c.do(ctx, opStatus)
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) do(ctx context.Context, o op) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}

	req := request{op: o, reply: make(chan response, 1)}

	select {
	case c.requests <- req:
	case <-c.done:
		return Status{}, ErrClosed
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}

	select {
	case resp := <-req.reply:
		return resp.status, resp.err
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

func (c *Controller) handle(req request) {
	switch req.op {
	case opStatus:
		req.reply <- response{status: c.status()}

	case opStart:
		switch {
		case c.state.Active():
			req.reply <- response{status: c.status(), err: ErrAlreadyRecording}
		case c.state != StateIdle:
			req.reply <- response{status: c.status(), err: ErrBusy}
		default:
			c.start(req.reply)
		}

	case opStop:
		switch {
		case c.state.Active():
			c.stop(req.reply)
		case c.state == StateIdle:
			req.reply <- response{status: c.status(), err: ErrNotRecording}
		default:
			req.reply <- response{status: c.status(), err: ErrBusy}
		}

	case opPause:
		switch {
		case c.state.Active():
			err := c.togglePause()
			req.reply <- response{status: c.status(), err: err}
		case c.state == StateIdle:
			req.reply <- response{status: c.status(), err: ErrNotRecording}
		default:
			req.reply <- response{status: c.status(), err: ErrBusy}
		}
	}
}

func (c *Controller) start(reply chan response) {
	snap := c.settings.Snapshot()
	now := c.opts.Now()

	args, output := command.Build(snap, now)
	argv := append([]string{c.opts.RecorderBin}, args...)
	quoted := command.Quote(argv)

	if err := os.MkdirAll(snap.OutputDirectory, 0o755); err != nil {
		c.failStart(reply, &StartError{Command: quoted, Err: fmt.Errorf("create output directory: %w", err)})
		return
	}

	proc, err := c.opts.Launcher.Launch(argv)
	if err != nil {
		c.failStart(reply, &StartError{Command: quoted, Err: err})
		return
	}

	rec := &recording{
		id:      uuid.NewString(),
		proc:    proc,
		command: quoted,
		output:  output,
		exit:    make(chan error, 1),
		pending: reply,
	}

	c.waiters.Go(func() {
		rec.exit <- proc.Wait()
	})

	c.rec = rec
	c.state = StateStarting
	c.logger.Info("recorder launched", "session", rec.id, "command", quoted)

	// a recorder that survives the probe counts as started
	c.setPhase(c.opts.StartProbe)
}

func (c *Controller) failStart(reply chan response, err *StartError) {
	c.logger.Error("failed to start recording", "command", err.Command, "error", err.Err, "stderr", err.Stderr)
	c.publish(Event{Kind: KindError, Message: err.Error(), Severity: SeverityError})
	reply <- response{status: c.status(), err: err}
}

func (c *Controller) promote() {
	rec := c.rec
	rec.started = c.opts.Now()
	c.state = StateRecording
	c.startTicker()

	c.logger.Info("recording started", "session", rec.id, "output", rec.output)
	c.publish(Event{Kind: KindStarted, SessionID: rec.id, Command: rec.command, OutputPath: rec.output})

	if rec.pending != nil {
		rec.pending <- response{status: c.status()}
		rec.pending = nil
	}
}

func (c *Controller) togglePause() error {
	rec := c.rec

	if err := rec.proc.Pause(); err != nil {
		c.logger.Warn("failed to signal pause", "session", rec.id, "error", err)
		c.publish(Event{Kind: KindError, SessionID: rec.id, Message: "Failed to pause recording: " + err.Error(), Severity: SeverityWarning})

		return fmt.Errorf("pause recorder: %w", err)
	}

	now := c.opts.Now()

	if !rec.paused {
		rec.paused = true
		rec.pausedAt = now
		c.state = StatePaused
		c.stopTicker()
	} else {
		rec.started = rec.started.Add(now.Sub(rec.pausedAt))
		rec.paused = false
		c.state = StateRecording
		c.startTicker()
	}

	c.logger.Info("recording pause toggled", "session", rec.id, "paused", rec.paused)
	c.publish(Event{Kind: KindPaused, SessionID: rec.id, Paused: rec.paused, Elapsed: FormatElapsed(c.elapsed())})

	return nil
}

func (c *Controller) stop(reply chan response) {
	rec := c.rec
	c.stopTicker()

	// freeze the clock for the final duration
	if !rec.paused {
		rec.pausedAt = c.opts.Now()
		rec.paused = true
	}

	rec.pending = reply
	c.state = StateStopping

	c.logger.Info("stopping recording", "session", rec.id)
	if err := rec.proc.Interrupt(); err != nil {
		c.logger.Warn("failed to interrupt recorder", "session", rec.id, "error", err)
	}

	c.setPhase(c.opts.StopGrace)
}

func (c *Controller) handlePhaseTimeout() {
	rec := c.rec
	if rec == nil {
		return
	}

	switch c.state {
	case StateStarting:
		c.promote()

	case StateStopping:
		if !rec.forced {
			rec.forced = true
			c.logger.Warn("recorder ignored interrupt, killing", "session", rec.id, "grace", c.opts.StopGrace)

			if err := rec.proc.Kill(); err != nil {
				c.logger.Error("failed to kill recorder", "session", rec.id, "error", err)
			}

			c.setPhase(c.opts.KillTimeout)

			return
		}

		c.logger.Error("recorder did not exit after kill", "session", rec.id)
		c.finishStop("recorder did not exit after being killed")
	}
}

func (c *Controller) handleExit(err error) {
	rec := c.rec

	switch c.state {
	case StateStarting:
		c.clearPhase()
		stderr := strings.TrimSpace(rec.proc.Stderr())
		startErr := &StartError{Command: rec.command, Stderr: stderr, Err: exitError(err)}
		pending := rec.pending
		c.reset()
		c.failStart(pending, startErr)

	case StateStopping:
		c.clearPhase()
		c.logger.Debug("recorder exited", "session", rec.id, "error", err)
		c.finishStop(checkOutput(rec.output))

	default:
		c.stopTicker()

		msg := strings.TrimSpace(rec.proc.Stderr())
		if msg == "" {
			msg = unexpectedExitMessage
		}

		duration := c.elapsed()
		c.logger.Error("recording ended unexpectedly", "session", rec.id, "error", err, "stderr", msg)
		c.reset()

		c.publish(Event{Kind: KindError, SessionID: rec.id, Message: msg, Severity: SeverityError})
		c.publish(Event{Kind: KindStopped, SessionID: rec.id, Clean: false, OutputPath: rec.output, Duration: duration})
	}
}

func (c *Controller) finishStop(warning string) {
	rec := c.rec
	duration := c.elapsed()

	if warning != "" {
		c.logger.Warn("recording may be incomplete", "session", rec.id, "warning", warning)
	}

	final := Status{
		State:      StateIdle,
		SessionID:  rec.id,
		OutputPath: rec.output,
		Elapsed:    FormatElapsed(duration),
	}

	pending := rec.pending
	c.reset()

	c.logger.Info("recording stopped", "session", rec.id, "output", rec.output, "forced", rec.forced, "duration", duration)
	c.publish(Event{
		Kind:       KindStopped,
		SessionID:  rec.id,
		Clean:      true,
		Forced:     rec.forced,
		OutputPath: rec.output,
		Warning:    warning,
		Duration:   duration,
	})

	if pending != nil {
		pending <- response{status: final}
	}
}

// shutdown stops a live session synchronously when the loop is cancelled.
func (c *Controller) shutdown() {
	rec := c.rec
	if rec == nil {
		return
	}

	c.stopTicker()
	c.clearPhase()

	if c.state == StateStarting {
		rec.pending <- response{status: c.status(), err: ErrClosed}
		rec.pending = nil
	}

	if c.state != StateStopping {
		if !rec.paused {
			rec.pausedAt = c.opts.Now()
			rec.paused = true
		}

		c.state = StateStopping
		c.logger.Info("stopping recording before exit", "session", rec.id)

		if err := rec.proc.Interrupt(); err != nil {
			c.logger.Warn("failed to interrupt recorder", "session", rec.id, "error", err)
		}
	}

	if !rec.forced {
		select {
		case <-rec.exit:
			c.finishStop(checkOutput(rec.output))
			return
		case <-time.After(c.opts.StopGrace):
		}

		rec.forced = true
		c.logger.Warn("recorder ignored interrupt, killing", "session", rec.id)
		if err := rec.proc.Kill(); err != nil {
			c.logger.Error("failed to kill recorder", "session", rec.id, "error", err)
		}
	}

	select {
	case <-rec.exit:
		c.finishStop(checkOutput(rec.output))
	case <-time.After(c.opts.KillTimeout):
		c.finishStop("recorder did not exit after being killed")
	}
}

func (c *Controller) reset() {
	c.rec = nil
	c.state = StateIdle
	c.stopTicker()
	c.clearPhase()
}

func (c *Controller) status() Status {
	st := Status{State: c.state, Elapsed: FormatElapsed(0)}

	if c.rec != nil {
		st.SessionID = c.rec.id
		st.OutputPath = c.rec.output
		st.Paused = c.rec.paused && c.state == StatePaused
		st.Elapsed = FormatElapsed(c.elapsed())
	}

	return st
}

func (c *Controller) elapsed() time.Duration {
	rec := c.rec
	if rec == nil || rec.started.IsZero() {
		return 0
	}

	end := c.opts.Now()
	if rec.paused {
		end = rec.pausedAt
	}

	if d := end.Sub(rec.started); d > 0 {
		return d
	}

	return 0
}

func (c *Controller) publish(ev Event) {
	if c.events == nil {
		return
	}

	ev.Time = c.opts.Now()
	c.events <- ev
}

func (c *Controller) startTicker() {
	c.stopTicker()
	c.ticker = time.NewTicker(c.opts.TickInterval)
}

func (c *Controller) stopTicker() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}

func (c *Controller) setPhase(d time.Duration) {
	c.clearPhase()
	c.phase = time.NewTimer(d)
}

func (c *Controller) clearPhase() {
	if c.phase != nil {
		c.phase.Stop()
		c.phase = nil
	}
}

func (c *Controller) exitC() <-chan error {
	if c.rec == nil {
		return nil
	}

	return c.rec.exit
}

func (c *Controller) tickC() <-chan time.Time {
	if c.ticker == nil || c.state != StateRecording {
		return nil
	}

	return c.ticker.C
}

func (c *Controller) phaseC() <-chan time.Time {
	if c.phase == nil {
		return nil
	}

	return c.phase.C
}

// FormatElapsed renders d as HH:MM:SS, truncating fractions of a second.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	total := int64(d / time.Second)

	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

func checkOutput(path string) string {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return fmt.Sprintf("output file %s was not written", path)
	case info.Size() == 0:
		return fmt.Sprintf("output file %s is empty", path)
	default:
		return ""
	}
}

func exitError(err error) error {
	if err == nil {
		return errors.New("recorder exited during startup")
	}

	return fmt.Errorf("recorder exited during startup: %w", err)
}
